package keywordsense

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/config"
	"github.com/kailas-cloud/keywordsense/internal/db"
	dbRedis "github.com/kailas-cloud/keywordsense/internal/db/redis"
	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
	"github.com/kailas-cloud/keywordsense/internal/ingest"
	"github.com/kailas-cloud/keywordsense/internal/repository/kwcache"
	anthropicTransport "github.com/kailas-cloud/keywordsense/internal/transport/anthropic"
	ollamaTransport "github.com/kailas-cloud/keywordsense/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/keywordsense/internal/transport/openai"
	"github.com/kailas-cloud/keywordsense/internal/usecase/analysis"
	"github.com/kailas-cloud/keywordsense/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/keywordsense/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultRequestTimeout   = 120 * time.Second
)

// analyzer is the orchestrator contract, substituted in tests.
type analyzer interface {
	Process(ctx context.Context, keywords []string, progress analysis.ProgressFunc) (analysis.Outcome, error)
}

// Client is the keywordsense SDK entry point. Analyze calls may run concurrently.
type Client struct {
	store     db.Store
	analyzer  analyzer
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. A model backend is required: WithOpenAI, WithAnthropic,
// WithOllama, WithProvider or WithCompleter. The context bounds the cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	comp, checker, credential, err := buildCompleter(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.cacheAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.cacheAddrs,
			Password:   cfg.cachePassword,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return nil, fmt.Errorf("keywordsense: create cache store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("keywordsense: cache not ready: %w", err)
		}
		store = s
	}

	return wireClient(store, comp, checker, credential, cfg, obs), nil
}

type healthCompleter interface {
	domain.Completer
	domain.HealthChecker
}

// buildCompleter resolves the model backend and the credential the classifier checks per batch.
func buildCompleter(cfg *clientConfig) (domain.Completer, domain.HealthChecker, classify.CredentialFunc, error) {
	if cfg.completer != nil {
		return &completerAdapter{inner: cfg.completer}, nil, func() string { return "custom" }, nil
	}

	model := cfg.model
	if model == "" {
		model = config.DefaultModel(cfg.provider)
	}
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	hc := &http.Client{Timeout: timeout}
	logger := zap.NewNop()
	apiKey := cfg.apiKey

	var c healthCompleter
	switch cfg.provider {
	case ProviderOpenAI:
		c = openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:      apiKey,
			BaseURL:     cfg.baseURL,
			Model:       model,
			MaxTokens:   cfg.maxTokens,
			Temperature: float32(cfg.temperature),
			Provider:    cfg.provider,
			HTTPClient:  hc,
			Logger:      logger,
		})
	case ProviderAnthropic:
		c = anthropicTransport.NewCompleter(&anthropicTransport.Config{
			APIKey:      apiKey,
			BaseURL:     cfg.baseURL,
			Model:       model,
			MaxTokens:   cfg.maxTokens,
			Temperature: cfg.temperature,
			Provider:    cfg.provider,
			HTTPClient:  hc,
			Logger:      logger,
		})
	case ProviderOllama:
		oc, err := ollamaTransport.NewCompleter(&ollamaTransport.Config{
			BaseURL:     cfg.baseURL,
			Model:       model,
			Temperature: cfg.temperature,
			Provider:    cfg.provider,
			HTTPClient:  hc,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("keywordsense: create ollama client: %w", err)
		}
		return oc, oc, func() string { return ollamaTransport.Endpoint(cfg.baseURL) }, nil
	case "":
		return nil, nil, nil, errors.New(
			"keywordsense: model backend required (use WithOpenAI, WithAnthropic, WithOllama or WithCompleter)",
		)
	default:
		return nil, nil, nil, fmt.Errorf("keywordsense: unknown provider %q", cfg.provider)
	}
	return c, c, func() string { return apiKey }, nil
}

func wireClient(
	store db.Store, comp domain.Completer, checker domain.HealthChecker,
	credential classify.CredentialFunc, cfg *clientConfig, obs *observer,
) *Client {
	logger := zap.NewNop()
	provider := cfg.provider
	if cfg.completer != nil {
		provider = "custom"
	}

	var classifier analysis.BatchClassifier = classify.New(comp, classify.Config{
		Provider:    provider,
		Credential:  credential,
		BackoffBase: cfg.backoffBase,
		Logger:      logger,
	})
	if store != nil {
		classifier = kwcache.New(classifier, store, cfg.cacheTTL, nil, logger)
	}

	svc := analysis.New(classifier, analysis.Config{
		BatchSize:       cfg.batchSize,
		MaxKeywords:     cfg.maxKeywords,
		MaxAttempts:     cfg.maxAttempts,
		InterBatchDelay: cfg.interBatchDelay,
		Logger:          logger,
	})

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	var hc healthuc.ClassifierChecker
	if checker != nil {
		hc = checker
	}

	return &Client{
		store:     store,
		analyzer:  svc,
		healthSvc: healthuc.New(pinger, hc),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Analyze classifies keywords in batches. Blank entries are dropped first.
// Failed batches are skipped and listed in Result.FailedBatches; an error is
// returned only when the run cannot proceed (no keywords, missing credential,
// cancelled context), together with whatever was classified before it stopped.
// onProgress may be nil.
func (c *Client) Analyze(ctx context.Context, keywords []string, onProgress func(Progress)) (res Result, err error) {
	start := time.Now()
	cleaned := ingest.Clean(keywords)
	defer func() {
		c.obs.observe("analyze", start, err,
			"keywords", len(cleaned),
			"classified", len(res.Keywords),
			"failed_batches", len(res.FailedBatches),
		)
		c.obs.keywords(len(cleaned), len(res.Keywords))
	}()

	progress := func(ev run.Event) {
		if onProgress != nil && ev.Kind == run.EventCompleted {
			onProgress(progressFromDomain(ev.Progress))
		}
	}

	outcome, err := c.analyzer.Process(ctx, cleaned, progress)
	res = resultFromOutcome(outcome)
	if err != nil {
		return res, fmt.Errorf("analyze: %w", err)
	}
	return res, nil
}
