package batch

import "github.com/kailas-cloud/keywordsense/internal/domain/keyword"

// Status is the processing outcome of a single batch.
type Status string

// Batch status values.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Span locates a batch inside the run input: keywords[Start:End].
type Span struct {
	Index int
	Start int
	End   int
}

// Size returns the number of keywords in the span.
func (s Span) Size() int { return s.End - s.Start }

// Partition splits n keywords into contiguous spans of at most size keywords.
// The last span is never empty. size < 1 is treated as 1.
func Partition(n, size int) []Span {
	if n <= 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	total := (n + size - 1) / size
	spans := make([]Span, 0, total)
	for i := 0; i < total; i++ {
		start := i * size
		end := min(start+size, n)
		spans = append(spans, Span{Index: i, Start: start, End: end})
	}
	return spans
}

// Result is the outcome of classifying one batch.
type Result struct {
	span    Span
	status  Status
	records []keyword.AnalyzedKeyword
	err     error
}

// NewOK creates a successful batch result.
func NewOK(span Span, records []keyword.AnalyzedKeyword) Result {
	return Result{span: span, status: StatusOK, records: records}
}

// NewError creates a failed batch result.
func NewError(span Span, err error) Result {
	return Result{span: span, status: StatusError, err: err}
}

// Span returns the batch location.
func (r Result) Span() Span { return r.span }

// Status returns the processing outcome.
func (r Result) Status() Status { return r.status }

// Records returns the classified keywords (nil on error).
func (r Result) Records() []keyword.AnalyzedKeyword { return r.records }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
