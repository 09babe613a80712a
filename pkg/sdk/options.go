package keywordsense

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider names accepted by WithProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	provider    string
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	completer   Completer

	batchSize       int
	maxKeywords     int
	maxAttempts     int
	backoffBase     time.Duration
	interBatchDelay time.Duration

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration
	standalone    bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithProvider selects a built-in provider by name with the given credential and model.
// An empty model selects the provider default.
func WithProvider(provider, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = provider
		c.apiKey = apiKey
		c.model = model
	})
}

// WithOpenAI classifies with the OpenAI chat completions API.
func WithOpenAI(apiKey, model string) Option {
	return WithProvider(ProviderOpenAI, apiKey, model)
}

// WithAnthropic classifies with the Anthropic messages API.
func WithAnthropic(apiKey, model string) Option {
	return WithProvider(ProviderAnthropic, apiKey, model)
}

// WithOllama classifies with a local Ollama server. An empty baseURL uses the
// OLLAMA_HOST environment; with neither set, Analyze fails with ErrConfiguration.
func WithOllama(baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = ProviderOllama
		c.baseURL = baseURL
		c.model = model
	})
}

// WithBaseURL overrides the provider endpoint (OpenAI-compatible gateways, proxies).
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithMaxTokens caps the output tokens per request. Default: 8192.
func WithMaxTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTokens = n
	})
}

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = t
	})
}

// WithTimeout bounds a single provider request. Default: 120s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithCompleter plugs in a custom model backend instead of a built-in provider.
func WithCompleter(comp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = comp
	})
}

// WithBatchSize sets the number of keywords per request. Default: 50.
func WithBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = n
	})
}

// WithMaxKeywords caps the keywords analyzed per run; the rest are dropped
// with a warning. Default: 5000.
func WithMaxKeywords(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxKeywords = n
	})
}

// WithRetry sets the attempts per batch and the rate-limit backoff base.
// The wait before retry n is base × n. Defaults: 3 attempts, 2s.
func WithRetry(maxAttempts int, backoffBase time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = maxAttempts
		c.backoffBase = backoffBase
	})
}

// WithInterBatchDelay sets the pause between batches. Negative disables it.
// Default: 200ms.
func WithInterBatchDelay(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.interBatchDelay = d
	})
}

// WithRedisCache caches classifications in Redis or Valkey for ttl.
// A non-positive ttl selects seven days.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithStandalone disables cluster topology discovery for the cache.
// Use for standalone Valkey/Redis instances (not managed by cluster operator).
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts, durations, keyword
// outcomes) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
