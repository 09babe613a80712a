package keywordsense

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/keywordsense/internal/domain"
)

// Completer sends one prompt to a language model and returns its raw text.
// Return an error wrapping ErrRateLimited for throttling so the batch is retried.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// Prompt is a single classification request.
type Prompt struct {
	System string
	User   string
	// Schema is the JSON schema the response must follow.
	Schema []byte
}

// Completion carries the model text and token usage.
type Completion struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// completerAdapter wraps a public Completer to satisfy domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error) {
	r, err := a.inner.Complete(ctx, Prompt{System: p.System, User: p.User, Schema: p.Schema})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return domain.Completion{
		Text:         r.Text,
		PromptTokens: r.PromptTokens,
		OutputTokens: r.OutputTokens,
	}, nil
}
