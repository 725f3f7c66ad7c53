// Package server provides the HTTP API for cover letter generation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/cache"
	"github.com/pynay/LetterChain/internal/db"
	"github.com/pynay/LetterChain/internal/extraction"
	"github.com/pynay/LetterChain/internal/fetch"
	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/server/middleware"
	"github.com/pynay/LetterChain/internal/server/ratelimit"
)

// Workflow runs the cover letter workflow. *pipeline.Controller implements it.
type Workflow interface {
	Generate(ctx context.Context, in pipeline.Input, onProgress pipeline.ProgressCallback) (*pipeline.Result, error)
	Stream(ctx context.Context, in pipeline.Input) <-chan pipeline.Event
	Feedback(ctx context.Context, in pipeline.FeedbackInput, onProgress pipeline.ProgressCallback) (*pipeline.Result, error)
	StreamFeedback(ctx context.Context, in pipeline.FeedbackInput) <-chan pipeline.Event
}

// RunStore looks up recorded runs. *db.DB implements it.
type RunStore interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
}

// CacheStats reports profile cache activity. *cache.Profiles implements it.
type CacheStats interface {
	Stats() cache.Stats
}

// PostingSource fetches job postings by URL. *fetch.PostingFetcher implements it.
type PostingSource interface {
	Fetch(ctx context.Context, url string) (*fetch.Posting, error)
}

// Pinger reports backend health. *db.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration. Only Workflow is required.
type Config struct {
	Port     int
	Workflow Workflow
	Runs     RunStore
	Cache    CacheStats
	Postings PostingSource
	Health   Pinger
	// Extractor reads uploaded documents; nil uses extraction.New().
	Extractor *extraction.Extractor
	// RateLimit configures per-client limits; nil disables them.
	RateLimit *ratelimit.Config
	Logger    *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	workflow    Workflow
	runs        RunStore
	cache       CacheStats
	postings    PostingSource
	health      Pinger
	extractor   *extraction.Extractor
	rateLimiter *ratelimit.Limiter
	logger      *slog.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Workflow == nil {
		return nil, errors.New("server requires a workflow")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extraction.New()
	}

	s := &Server{
		workflow:  cfg.Workflow,
		runs:      cfg.Runs,
		cache:     cfg.Cache,
		postings:  cfg.Postings,
		health:    cfg.Health,
		extractor: extractor,
		logger:    logger,
	}
	if cfg.RateLimit != nil {
		s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /generate/stream", s.handleGenerateStream)
	mux.HandleFunc("POST /feedback", s.handleFeedback)
	mux.HandleFunc("POST /feedback/stream", s.handleFeedbackStream)
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover(logger),
		middleware.Logging(logger),
		middleware.CORS,
		s.withRateLimit,
	)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Minute, // Long timeout for workflow runs with retries
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.stopLimiter()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.stopLimiter()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) stopLimiter() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID uses the IP address from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "Rate limit exceeded. Please try again later.",
		"code":      CodeRateLimited,
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Round(time.Second).Seconds())
		secs = max(secs, 1)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("rate limit exceeded", "path", r.URL.Path, "client", extractClientID(r), "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, code, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message, Code: code})
}

// errorFrom writes err with its mapped status and code.
func (s *Server) errorFrom(w http.ResponseWriter, err error) {
	body := ErrorResponse{Error: err.Error(), Code: ErrorCode(err)}
	var verr *ErrValidation
	var ierr *pipeline.InputError
	switch {
	case errors.As(err, &verr):
		body.Field = verr.Field
	case errors.As(err, &ierr):
		body.Field = ierr.Field
	}
	s.jsonResponse(w, HTTPStatus(err), body)
}
