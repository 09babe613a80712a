package classify

import (
	"context"
	"time"
)

// CredentialFunc resolves the provider credential at call time. Empty means not configured.
type CredentialFunc func() string

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}
