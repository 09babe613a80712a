// Package budget describes the token budget state of a classifier provider.
package budget

// Budget is a snapshot of one budget period.
type Budget struct {
	tokensLimit     int64
	tokensUsed      int64
	tokensRemaining int64
	resetsAt        int64 // unix millis, converted to ISO 8601 at transport layer
}

// New creates a Budget snapshot. A non-positive limit means unlimited.
func New(limit, used, remaining int64, resetsAt int64) Budget {
	if limit <= 0 {
		limit, remaining = 0, -1
	}
	return Budget{
		tokensLimit:     limit,
		tokensUsed:      used,
		tokensRemaining: remaining,
		resetsAt:        resetsAt,
	}
}

// TokensLimit returns the token cap, 0 when unlimited.
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensUsed returns tokens spent in the period.
func (b Budget) TokensUsed() int64 { return b.tokensUsed }

// TokensRemaining returns tokens left, -1 when unlimited.
func (b Budget) TokensRemaining() int64 { return b.tokensRemaining }

// IsUnlimited reports whether no cap is configured.
func (b Budget) IsUnlimited() bool { return b.tokensLimit == 0 }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return !b.IsUnlimited() && b.tokensRemaining <= 0 }

// ResetsAt returns the reset timestamp (unix millis), 0 when the period never resets.
func (b Budget) ResetsAt() int64 { return b.resetsAt }
