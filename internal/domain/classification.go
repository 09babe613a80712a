package domain

import "context"

// Completer is the shared contract between the classifier client and provider transports.
// One call is one remote request; implementations map throttling to ErrRateLimited
// and every other remote failure to ErrTransport.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// HealthChecker verifies classifier provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Prompt is a single classification request.
type Prompt struct {
	System string
	User   string
	// Schema is the JSON schema of the expected response, for providers with structured output.
	Schema []byte
	// SchemaName identifies the schema for providers that require a name.
	SchemaName string
}

// Completion carries the raw model text and token usage back through the decorator chain.
type Completion struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// TotalTokens returns prompt plus output tokens.
func (c Completion) TotalTokens() int { return c.PromptTokens + c.OutputTokens }
