package chi

import (
	"time"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
	"github.com/kailas-cloud/keywordsense/internal/domain/summary"
	domusage "github.com/kailas-cloud/keywordsense/internal/domain/usage"
)

// ErrorResponseCode is the machine-readable error code of an API error.
type ErrorResponseCode string

// API error codes.
const (
	ErrorResponseCodeBadRequest           ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized         ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed     ErrorResponseCode = "validation_failed"
	ErrorResponseCodeEmptyInput           ErrorResponseCode = "empty_input"
	ErrorResponseCodeUnsupportedMedia     ErrorResponseCode = "unsupported_media_type"
	ErrorResponseCodePayloadTooLarge      ErrorResponseCode = "payload_too_large"
	ErrorResponseCodeRunInProgress        ErrorResponseCode = "run_in_progress"
	ErrorResponseCodeNoRun                ErrorResponseCode = "no_run"
	ErrorResponseCodeNotConfigured        ErrorResponseCode = "classifier_not_configured"
	ErrorResponseCodeRateLimited          ErrorResponseCode = "rate_limited"
	ErrorResponseCodeQuotaExceeded        ErrorResponseCode = "quota_exceeded"
	ErrorResponseCodeClassifierError      ErrorResponseCode = "classifier_error"
	ErrorResponseCodeInternalError        ErrorResponseCode = "internal_error"
	ErrorResponseCodeInvalidClassifierOut ErrorResponseCode = "invalid_classifier_response"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// StartAnalysisRequest is the JSON body of POST /v1/analyses.
type StartAnalysisRequest struct {
	Keywords []string `json:"keywords"`
}

// KeywordResponse is one classified keyword.
type KeywordResponse struct {
	Original  string `json:"original"`
	Cluster   string `json:"cluster"`
	IsEnglish bool   `json:"isEnglish"`
	IsBrand   bool   `json:"isBrand"`
	Intent    string `json:"intent"`
}

// RunResponse is a run snapshot without its records.
type RunResponse struct {
	ID            string     `json:"id,omitempty"`
	Status        string     `json:"status"`
	Processed     int        `json:"processed"`
	Total         int        `json:"total"`
	Percent       int        `json:"percent"`
	TotalBatches  int        `json:"total_batches"`
	FailedBatches []int      `json:"failed_batches"`
	Warning       *string    `json:"warning,omitempty"`
	Error         *string    `json:"error,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// KeywordListResponse is the filtered record list of the current run.
type KeywordListResponse struct {
	Status string            `json:"status"`
	Total  int               `json:"total"`
	Count  int               `json:"count"`
	Items  []KeywordResponse `json:"items"`
}

// CountResponse is a label with its frequency.
type CountResponse struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// SummaryResponse aggregates the records of the current run.
type SummaryResponse struct {
	Total        int             `json:"total"`
	EnglishCount int             `json:"english_count"`
	BrandCount   int             `json:"brand_count"`
	Clusters     []CountResponse `json:"clusters"`
	Intents      []CountResponse `json:"intents"`
}

// BudgetStatus is the token budget part of a usage report.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensUsed      int64      `json:"tokens_used"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsUnlimited     bool       `json:"is_unlimited"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func keywordToResponse(k keyword.AnalyzedKeyword) KeywordResponse {
	return KeywordResponse{
		Original:  k.Original(),
		Cluster:   k.Cluster(),
		IsEnglish: k.IsEnglish(),
		IsBrand:   k.IsBrand(),
		Intent:    string(k.Intent()),
	}
}

func keywordsToResponse(ks []keyword.AnalyzedKeyword) []KeywordResponse {
	out := make([]KeywordResponse, len(ks))
	for i, k := range ks {
		out[i] = keywordToResponse(k)
	}
	return out
}

func snapshotToResponse(s run.Snapshot) RunResponse {
	resp := RunResponse{
		ID:            s.ID,
		Status:        string(s.Status),
		Processed:     s.Processed,
		Total:         s.Total,
		Percent:       s.Percent,
		TotalBatches:  s.TotalBatches,
		FailedBatches: s.FailedBatches,
	}
	if resp.FailedBatches == nil {
		resp.FailedBatches = []int{}
	}
	if s.Warning != "" {
		w := s.Warning
		resp.Warning = &w
	}
	if s.Error != "" {
		e := s.Error
		resp.Error = &e
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt.UTC()
		resp.StartedAt = &t
	}
	if !s.FinishedAt.IsZero() {
		t := s.FinishedAt.UTC()
		resp.FinishedAt = &t
	}
	return resp
}

func countsToResponse(cs []summary.Count) []CountResponse {
	out := make([]CountResponse, len(cs))
	for i, c := range cs {
		out[i] = CountResponse{Name: c.Name, Value: c.Value}
	}
	return out
}

func summaryToResponse(s summary.Summary) SummaryResponse {
	return SummaryResponse{
		Total:        s.Total,
		EnglishCount: s.EnglishCount,
		BrandCount:   s.BrandCount,
		Clusters:     countsToResponse(s.Clusters),
		Intents:      countsToResponse(s.Intents),
	}
}

func usageToResponse(r domusage.Report) UsageResponse {
	b := r.Budget()
	resp := UsageResponse{
		Period:        string(r.Period()),
		Provider:      r.Provider(),
		PeriodStartAt: time.UnixMilli(r.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(r.PeriodEnd()).UTC(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensUsed:      b.TokensUsed(),
			TokensRemaining: b.TokensRemaining(),
			IsUnlimited:     b.IsUnlimited(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if b.ResetsAt() > 0 {
		t := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &t
	}
	return resp
}
