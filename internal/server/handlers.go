package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/cache"
	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/server/middleware"
	"github.com/pynay/LetterChain/internal/stream"
)

// resolveJob fills JobText from JobURL when only the URL was given.
func (s *Server) resolveJob(ctx context.Context, req *GenerateRequest) error {
	if strings.TrimSpace(req.JobText) != "" || req.JobURL == "" {
		return nil
	}
	if s.postings == nil {
		return &ErrValidation{Field: "job_url", Message: "fetching job postings is not enabled"}
	}
	posting, err := s.postings.Fetch(ctx, req.JobURL)
	if err != nil {
		return err
	}
	req.JobText = posting.Text
	return nil
}

func (req GenerateRequest) input() pipeline.Input {
	return pipeline.Input{ResumeText: req.ResumeText, JobText: req.JobText, Tone: req.Tone}
}

func (req FeedbackRequest) input() pipeline.FeedbackInput {
	return pipeline.FeedbackInput{
		Input:          req.GenerateRequest.input(),
		PreviousLetter: req.PreviousLetter,
		Feedback:       req.Feedback,
		Snapshot:       req.Snapshot,
	}
}

// handleGenerate runs the workflow and returns the accepted letter.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerate(w, r)
	if err == nil {
		err = s.resolveJob(r.Context(), &req)
	}
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	res, err := s.workflow.Generate(r.Context(), req.input(), nil)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleGenerateStream runs the workflow and streams its progress.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerate(w, r)
	if err == nil {
		err = s.resolveJob(r.Context(), &req)
	}
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	s.streamEvents(w, r, func(ctx context.Context) <-chan pipeline.Event {
		return s.workflow.Stream(ctx, req.input())
	})
}

// handleFeedback revises a previous letter.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFeedback(w, r)
	if err == nil {
		err = s.resolveJob(r.Context(), &req.GenerateRequest)
	}
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	res, err := s.workflow.Feedback(r.Context(), req.input(), nil)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleFeedbackStream revises a previous letter and streams its progress.
func (s *Server) handleFeedbackStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFeedback(w, r)
	if err == nil {
		err = s.resolveJob(r.Context(), &req.GenerateRequest)
	}
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	s.streamEvents(w, r, func(ctx context.Context) <-chan pipeline.Event {
		return s.workflow.StreamFeedback(ctx, req.input())
	})
}

// wantsSSE reports whether the client asked for Server-Sent Events.
func wantsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// streamEvents picks SSE or NDJSON framing, starts the run, and pumps its
// events until the terminal envelope and end sentinel are written. The run
// is cancelled when the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, start func(context.Context) <-chan pipeline.Event) {
	var sink stream.Sink
	if wantsSSE(r) {
		sse, err := NewSSEWriter(w)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, stream.CodeInternal, err.Error())
			return
		}
		sink = sse
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Accel-Buffering", "no")
		sink = stream.NewEncoder(w)
	}
	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	began := time.Now()
	terminal, err := stream.Pump(start(ctx), sink)
	log := s.logger.With("request_id", middleware.GetRequestID(r), "run_id", terminal.RunID)
	if err != nil {
		log.Warn("stream write failed", "error", err)
		return
	}
	log.Info("stream finished", "terminal", string(terminal.Type), "code", terminal.Code, "duration_ms", time.Since(began).Milliseconds())
}

// handleExtract returns the text of an uploaded document.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		s.errorFrom(w, &ErrValidation{Field: "body", Message: "expected a multipart form with a file field"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.extractor.Limit()+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = &ErrValidation{Field: "body", Message: "invalid multipart form: " + err.Error()}
		}
		s.errorFrom(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	text, ok, err := s.formFile(r.MultipartForm, "file")
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if !ok {
		s.errorFrom(w, &ErrValidation{Field: "file", Message: "is required"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"text":       text,
		"characters": utf8.RuneCountInString(text),
	})
}

// handleGetRun returns a recorded run and its steps.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusNotImplemented, CodeNotEnabled, "run history requires a database")
		return
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, stream.CodeInvalidInput, "Invalid run ID format")
		return
	}

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		s.logger.Error("failed to load run", "run_id", runID.String(), "error", err)
		s.errorResponse(w, http.StatusInternalServerError, stream.CodeInternal, "failed to load run")
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, CodeNotFound, "Run not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// CacheStatsResponse is the body of GET /cache/stats.
type CacheStatsResponse struct {
	Enabled bool `json:"enabled"`
	cache.Stats
}

// handleCacheStats reports profile cache activity.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		s.jsonResponse(w, http.StatusOK, CacheStatsResponse{Enabled: false})
		return
	}
	s.jsonResponse(w, http.StatusOK, CacheStatsResponse{Enabled: true, Stats: s.cache.Stats()})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
