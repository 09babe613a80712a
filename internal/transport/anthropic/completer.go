// Package anthropic implements the classifier transport on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
)

const defaultMaxTokens = 8192

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// Config holds the provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Provider    string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Completer sends one Messages request per classification call.
type Completer struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	provider    string
	logger      *zap.Logger
}

// NewCompleter creates an Anthropic completer. SDK retries are disabled: the
// classifier client owns the retry policy.
func NewCompleter(cfg *Config) *Completer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "anthropic"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		provider:    provider,
		logger:      logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error) {
	system := prompt.System
	if len(prompt.Schema) > 0 {
		system += "\n\nThe response must be JSON matching this schema:\n" + string(prompt.Schema)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
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
	metrics.ClassifierTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(msg.Usage.InputTokens))
	metrics.ClassifierTokensTotal.WithLabelValues(c.provider, c.model, "output").Add(float64(msg.Usage.OutputTokens))

	if msg.StopReason == anthropic.StopReasonMaxTokens {
		c.logger.Warn("Classifier output truncated", zap.String("provider", c.provider), zap.String("model", c.model))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.Completion{}, fmt.Errorf("no text content in response: %w", domain.ErrInvalidResponse)
	}

	return domain.Completion{
		Text:         text.String(),
		PromptTokens: int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		cause := domain.ErrTransport
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == statusOverloaded {
			cause = domain.ErrRateLimited
		}
		return fmt.Errorf("messages API error %d: %w", apiErr.StatusCode, cause)
	}
	return fmt.Errorf("messages request failed: %v: %w", err, domain.ErrTransport)
}
