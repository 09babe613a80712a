package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/config"
	"github.com/kailas-cloud/keywordsense/internal/db"
	dbRedis "github.com/kailas-cloud/keywordsense/internal/db/redis"
	"github.com/kailas-cloud/keywordsense/internal/domain"
	logpkg "github.com/kailas-cloud/keywordsense/internal/logger"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
	budgetrepo "github.com/kailas-cloud/keywordsense/internal/repository/budget"
	"github.com/kailas-cloud/keywordsense/internal/repository/kwcache"
	anthropicTransport "github.com/kailas-cloud/keywordsense/internal/transport/anthropic"
	chiTransport "github.com/kailas-cloud/keywordsense/internal/transport/chi"
	ollamaTransport "github.com/kailas-cloud/keywordsense/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/keywordsense/internal/transport/openai"
	analysisuc "github.com/kailas-cloud/keywordsense/internal/usecase/analysis"
	budgetuc "github.com/kailas-cloud/keywordsense/internal/usecase/budget"
	classifyuc "github.com/kailas-cloud/keywordsense/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/keywordsense/internal/usecase/health"
	usageuc "github.com/kailas-cloud/keywordsense/internal/usecase/usage"
	"github.com/kailas-cloud/keywordsense/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting keywordsense API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("provider", cfg.Classifier.Provider),
		zap.String("model", cfg.Classifier.Model),
		zap.Bool("database", cfg.Database.Enabled()),
	)

	metrics.RegisterClassificationMetrics()

	ctx := context.Background()

	store := openStore(ctx, cfg.Database, logger)
	if store != nil {
		defer store.Close()
	}

	// Token budget, persisted when a store is configured
	tracker := budgetuc.NewTracker(
		cfg.Classifier.Provider,
		cfg.Budget.DailyTokenLimit,
		cfg.Budget.MonthlyTokenLimit,
		budgetAction(cfg.Budget.Action),
		logger,
	)
	if store != nil {
		tracker.WithStore(ctx, budgetrepo.New(store, 0, 0))
	}

	completer, checker, err := buildCompleter(cfg.Classifier, logger)
	if err != nil {
		logger.Fatal("Failed to create classifier transport", zap.Error(err))
	}

	classifier := buildClassifier(cfg, completer, tracker, store, logger)

	svc := analysisuc.New(classifier, analysisuc.Config{
		BatchSize:       cfg.Batch.Size,
		MaxKeywords:     cfg.Batch.MaxKeywords,
		MaxAttempts:     cfg.Batch.MaxAttempts,
		InterBatchDelay: time.Duration(cfg.Batch.InterBatchDelayMs) * time.Millisecond,
		Logger:          logger,
	})
	session := analysisuc.NewSession(svc, logger)

	usageSvc := usageuc.New(tracker, cfg.Classifier.Provider)

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, checker)

	server := chiTransport.NewServer(session, usageSvc, healthSvc, cfg.HTTP.MaxBodyBytes, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := session.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Analysis run did not stop in time", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore connects to the key-value store, or returns nil when none is configured.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) db.Store {
	if !cfg.Enabled() {
		logger.Info("No database configured, cache and budget persistence disabled")
		return nil
	}

	// Redis and Valkey speak the same protocol; rueidis serves both.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		DB:         cfg.DB,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.String("driver", cfg.Driver), zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store
}

type healthCompleter interface {
	domain.Completer
	domain.HealthChecker
}

// buildCompleter creates the provider transport selected by cfg.Provider.
func buildCompleter(cfg config.ClassifierConfig, logger *zap.Logger) (healthCompleter, domain.HealthChecker, error) {
	hc := &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		c := anthropicTransport.NewCompleter(&anthropicTransport.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Provider:    cfg.Provider,
			HTTPClient:  hc,
			Logger:      logger,
		})
		return c, c, nil
	case config.ProviderOllama:
		c, err := ollamaTransport.NewCompleter(&ollamaTransport.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Provider:    cfg.Provider,
			HTTPClient:  hc,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("ollama: %w", err)
		}
		return c, c, nil
	default:
		c := openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			MaxTokens:      cfg.MaxTokens,
			Temperature:    float32(cfg.Temperature),
			ResponseFormat: cfg.ResponseFormat,
			Provider:       cfg.Provider,
			HTTPClient:     hc,
			Logger:         logger,
		})
		return c, c, nil
	}
}

// buildClassifier assembles the decorator chain: transport -> Instrumented -> Client -> Cached.
func buildClassifier(
	cfg config.Config,
	completer domain.Completer,
	budget classifyuc.BudgetChecker,
	store db.Store,
	logger *zap.Logger,
) analysisuc.BatchClassifier {
	instrumented := classifyuc.NewInstrumentedCompleter(
		completer, cfg.Classifier.Provider, cfg.Classifier.Model, budget, logger,
	)

	client := classifyuc.New(instrumented, classifyuc.Config{
		Provider:    cfg.Classifier.Provider,
		Credential:  credentialFor(cfg.Classifier),
		BackoffBase: time.Duration(cfg.Batch.BackoffBaseMs) * time.Millisecond,
		Logger:      logger,
	})

	if cfg.Cache.Enabled && store != nil {
		return kwcache.New(client, store, time.Duration(cfg.Cache.TTLHours)*time.Hour, metrics.KeywordCacheTotal, logger)
	}
	return client
}

// credentialFor returns the credential the client checks before each batch.
// Ollama takes no key, so its configured endpoint is checked instead.
func credentialFor(cfg config.ClassifierConfig) classifyuc.CredentialFunc {
	if cfg.Provider == config.ProviderOllama {
		return func() string { return ollamaTransport.Endpoint(cfg.BaseURL) }
	}
	return func() string { return cfg.APIKey }
}

func budgetAction(s string) budgetuc.Action {
	if s == string(budgetuc.ActionReject) {
		return budgetuc.ActionReject
	}
	return budgetuc.ActionWarn
}
