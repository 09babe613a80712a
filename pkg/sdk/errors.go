package keywordsense

import "github.com/kailas-cloud/keywordsense/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration   = domain.ErrConfiguration
	ErrEmptyInput      = domain.ErrEmptyInput
	ErrInvalidResponse = domain.ErrInvalidResponse
	ErrRateLimited     = domain.ErrRateLimited
	ErrTransport       = domain.ErrTransport
	ErrQuotaExceeded   = domain.ErrQuotaExceeded
)
