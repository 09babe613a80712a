package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
)

// Response format modes.
const (
	FormatSchema = "json_schema"
	FormatJSON   = "json_object"
	FormatText   = "text"
)

// Completer is a classification provider on the OpenAI-compatible chat API
// (OpenAI, Gemini's OpenAI endpoint, Nebius, Groq).
type Completer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	format      string
	provider    string
	logger      *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	// ResponseFormat is json_schema (default), json_object or text.
	ResponseFormat string
	Provider       string
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completer.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	format := cfg.ResponseFormat
	if format == "" {
		format = FormatSchema
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		format:      format,
		provider:    cfg.Provider,
		logger:      logger,
	}
}

// Complete implements domain.Completer with one chat completion request.
func (c *Completer) Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature:    c.temperature,
		ResponseFormat: c.responseFormat(prompt),
	}
	if c.maxTokens > 0 {
		req.MaxCompletionTokens = c.maxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		mapped := parseAPIError(err)
		c.recordError(mapped)
		return domain.Completion{}, mapped
	}
	if len(resp.Choices) == 0 {
		metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		metrics.ClassifierErrorsTotal.WithLabelValues(c.provider, c.model, "empty_response").Inc()
		return domain.Completion{}, fmt.Errorf("chat completion without choices: %w", domain.ErrInvalidResponse)
	}

	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	metrics.ClassifierTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ClassifierTokensTotal.WithLabelValues(c.provider, c.model, "output").Add(float64(resp.Usage.CompletionTokens))

	if fr := resp.Choices[0].FinishReason; fr == openai.FinishReasonLength {
		c.logger.Warn("Classifier output truncated", zap.String("provider", c.provider), zap.String("model", c.model))
	}

	return domain.Completion{
		Text:         resp.Choices[0].Message.Content,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *Completer) responseFormat(prompt domain.Prompt) *openai.ChatCompletionResponseFormat {
	switch {
	case c.format == FormatSchema && len(prompt.Schema) > 0:
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   prompt.SchemaName,
				Schema: json.RawMessage(prompt.Schema),
				Strict: true,
			},
		}
	case c.format == FormatJSON || c.format == FormatSchema:
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	default:
		return nil
	}
}

func (c *Completer) recordError(err error) {
	errType := "api_error"
	if errors.Is(err, domain.ErrRateLimited) {
		errType = "rate_limited"
	}
	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
	metrics.ClassifierErrorsTotal.WithLabelValues(c.provider, c.model, errType).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps throttling to ErrRateLimited and everything else to ErrTransport.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, classify(reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, classify(apiErr.HTTPStatusCode, apiErr.Message))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat request: %w: %w", err, domain.ErrTransport)
	}
	return fmt.Errorf("chat request failed: %v: %w", err, domain.ErrTransport)
}

func classify(status int, message string) error {
	if status == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(message), "resource has been exhausted") {
		return domain.ErrRateLimited
	}
	return domain.ErrTransport
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
