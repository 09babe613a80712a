// Package ollama implements the classifier transport on a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
)

// Config holds the provider settings. An empty BaseURL falls back to OLLAMA_HOST.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Provider    string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Completer sends non-streaming chat requests with a JSON schema format.
type Completer struct {
	client      *api.Client
	model       string
	temperature float64
	provider    string
	logger      *zap.Logger
}

// Endpoint returns the server address a completer built from baseURL talks to
// when one is configured explicitly: baseURL, else OLLAMA_HOST. It is empty when
// neither is set.
func Endpoint(baseURL string) string {
	if v := strings.TrimSpace(baseURL); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
}

// NewCompleter creates an Ollama completer.
func NewCompleter(cfg *Config) (*Completer, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "ollama"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		provider:    provider,
		logger:      logger,
	}, nil
}

func newClient(cfg *Config) (*api.Client, error) {
	if cfg.BaseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		return c, nil
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.BaseURL, err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return api.NewClient(base, hc), nil
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}
	if len(prompt.Schema) > 0 {
		req.Format = json.RawMessage(prompt.Schema)
	}
	if c.temperature > 0 {
		req.Options = map[string]any{"temperature": c.temperature}
	}

	var (
		text  strings.Builder
		final api.ChatResponse
		start = time.Now()
	)
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
		}
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		mapped := mapError(err)
		errType := "api_error"
		if errors.Is(mapped, domain.ErrRateLimited) {
			errType = "rate_limited"
		}
		metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		metrics.ClassifierErrorsTotal.WithLabelValues(c.provider, c.model, errType).Inc()
		return domain.Completion{}, mapped
	}

	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	metrics.ClassifierTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(final.PromptEvalCount))
	metrics.ClassifierTokensTotal.WithLabelValues(c.provider, c.model, "output").Add(float64(final.EvalCount))

	if final.DoneReason == "length" {
		c.logger.Warn("Classifier output truncated", zap.String("provider", c.provider), zap.String("model", c.model))
	}

	return domain.Completion{
		Text:         text.String(),
		PromptTokens: final.PromptEvalCount,
		OutputTokens: final.EvalCount,
	}, nil
}

// HealthCheck pings the Ollama server.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}

func mapError(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		cause := domain.ErrTransport
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode == http.StatusServiceUnavailable {
			cause = domain.ErrRateLimited
		}
		return fmt.Errorf("ollama chat error %d: %s: %w", se.StatusCode, se.ErrorMessage, cause)
	}
	return fmt.Errorf("ollama chat failed: %v: %w", err, domain.ErrTransport)
}
