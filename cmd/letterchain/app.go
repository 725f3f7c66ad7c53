package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pynay/LetterChain/internal/cache"
	"github.com/pynay/LetterChain/internal/config"
	"github.com/pynay/LetterChain/internal/db"
	"github.com/pynay/LetterChain/internal/fetch"
	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/observability"
	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/schemas"
	"github.com/pynay/LetterChain/internal/validation"
)

// newLLMClient builds the provider client. Tests replace it.
var newLLMClient = llm.NewClient

// loadConfig reads the config file and environment, then applies global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired components shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     llm.Client
	database   *db.DB
	profiles   *cache.Profiles
	postings   *fetch.PostingFetcher
	controller *pipeline.Controller
}

// newApp wires the completion client, storage and workflow. Client wrappers
// apply from the inside out: timeout, rate limit, retry.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if err := schemas.Check(); err != nil {
		return nil, err
	}

	models := cfg.LLMConfig()
	client, err := newLLMClient(ctx, models, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client (set %s): %w", cfg.Provider, config.APIKeyEnv(cfg.Provider)[0], err)
	}
	client = llm.WithTimeout(client, cfg.CompletionTimeout.Std())
	client = llm.WithRateLimit(client, llm.NewLimiter(cfg.RequestsPerSecond, cfg.Burst))
	client = llm.WithRetry(client, cfg.TransportRetries, cfg.RetryBackoff.Std())
	a.client = client

	var store cache.Store = cache.NewMemoryStore(cfg.CacheEntries)
	var recorder pipeline.RunRecorder
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			a.Close()
			return nil, err
		}
		a.database = database
		store = db.NewProfileCache(database)
		recorder = database
		logger.Debug("using database for run history and profile cache")
	}
	a.profiles = cache.NewProfiles(store, cfg.CacheTTL.Std(), logger)

	a.postings = &fetch.PostingFetcher{Cache: store, Logger: logger}
	if cfg.UseBrowser {
		a.postings.Render = fetch.BrowserRenderer(fetch.DefaultRenderTimeout)
	}

	kind, err := validation.ParseKind(cfg.Validator)
	if err != nil {
		a.Close()
		return nil, err
	}
	var validator validation.Validator
	if kind == validation.KindRules {
		validator = validation.NewRuleValidator(validation.DefaultRuleOptions())
	}

	steps := pipeline.NewSteps(client, models, a.profiles, validator)
	a.controller, err = pipeline.NewController(steps, pipeline.Options{
		MaxAttempts:   cfg.MaxAttempts,
		MinInputChars: cfg.MinInputChars,
		Logger:        logger,
		Recorder:      recorder,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the client and database connections.
func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("failed to close completion client", "error", err)
		}
	}
	if a.database != nil {
		a.database.Close()
	}
}
