// Package classify wraps one remote classification call per keyword batch,
// with rate-limit retries and response validation.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
)

// DefaultBackoffBase is the first rate-limit delay; attempt n waits n times this.
const DefaultBackoffBase = 2 * time.Second

// Config holds the client settings.
type Config struct {
	Provider    string
	Credential  CredentialFunc
	BackoffBase time.Duration
	Sleep       SleepFunc
	Logger      *zap.Logger
}

// Client classifies keyword batches through a Completer. It keeps no state between calls.
type Client struct {
	completer  domain.Completer
	provider   string
	credential CredentialFunc
	backoff    time.Duration
	sleep      SleepFunc
	logger     *zap.Logger
}

// New creates a Client.
func New(completer domain.Completer, cfg Config) *Client {
	c := &Client{
		completer:  completer,
		provider:   cfg.Provider,
		credential: cfg.Credential,
		backoff:    cfg.BackoffBase,
		sleep:      cfg.Sleep,
		logger:     cfg.Logger,
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoffBase
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Ready fails with ErrConfiguration when no credential is configured.
// The credential is resolved on every call.
func (c *Client) Ready() error {
	if c.credential == nil || strings.TrimSpace(c.credential()) == "" {
		return fmt.Errorf("%s credential is missing: %w", c.provider, domain.ErrConfiguration)
	}
	return nil
}

// ClassifyBatch classifies keywords with one request per attempt. Only ErrRateLimited
// is retried, at most retriesRemaining times, waiting backoff × attempt before each retry.
// The result follows the input order and never contains keywords absent from the input.
func (c *Client) ClassifyBatch(
	ctx context.Context, keywords []string, retriesRemaining int,
) ([]keyword.AnalyzedKeyword, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	prompt, err := BuildPrompt(keywords)
	if err != nil {
		return nil, err
	}

	maxAttempts := max(retriesRemaining, 0) + 1
	for attempt := 1; ; attempt++ {
		records, err := c.attempt(ctx, prompt, keywords)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		if attempt >= maxAttempts {
			return nil, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		delay := c.backoff * time.Duration(attempt)
		c.logger.Warn("Rate limit hit, retrying batch",
			zap.String("provider", c.provider),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("delay", delay),
		)
		metrics.ClassifierRetriesTotal.WithLabelValues(c.provider).Inc()

		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("backoff: %w", err)
		}
	}
}

func (c *Client) attempt(
	ctx context.Context, prompt domain.Prompt, keywords []string,
) ([]keyword.AnalyzedKeyword, error) {
	completion, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	parsed, err := parseRecords(completion.Text)
	if err != nil {
		c.logger.Debug("Unparseable classifier response",
			zap.String("provider", c.provider),
			zap.Int("length", len(completion.Text)),
			zap.Error(err),
		)
		return nil, err
	}
	return align(keywords, parsed, c.logger), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller wraps
	case <-t.C:
		return nil
	}
}
