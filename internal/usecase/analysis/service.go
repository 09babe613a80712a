// Package analysis drives keyword batches through the classifier and owns the run session.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/batch"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
)

// Orchestrator defaults.
const (
	DefaultBatchSize       = 50
	DefaultMaxKeywords     = 5000
	DefaultMaxAttempts     = 3
	DefaultInterBatchDelay = 200 * time.Millisecond
)

// Config holds orchestrator settings. Zero values select the defaults;
// a negative InterBatchDelay disables the delay.
type Config struct {
	BatchSize       int
	MaxKeywords     int
	MaxAttempts     int
	InterBatchDelay time.Duration
	Sleep           func(ctx context.Context, d time.Duration) error
	Logger          *zap.Logger
}

// Service partitions keywords into batches and classifies them one at a time.
type Service struct {
	classifier  BatchClassifier
	batchSize   int
	maxKeywords int
	maxAttempts int
	delay       time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// New creates an orchestrator service.
func New(classifier BatchClassifier, cfg Config) *Service {
	s := &Service{
		classifier:  classifier,
		batchSize:   cfg.BatchSize,
		maxKeywords: cfg.MaxKeywords,
		maxAttempts: cfg.MaxAttempts,
		delay:       cfg.InterBatchDelay,
		sleep:       cfg.Sleep,
		logger:      cfg.Logger,
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.maxKeywords <= 0 {
		s.maxKeywords = DefaultMaxKeywords
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	switch {
	case s.delay == 0:
		s.delay = DefaultInterBatchDelay
	case s.delay < 0:
		s.delay = 0
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Plan is a validated run input.
type Plan struct {
	Keywords []string
	Spans    []batch.Span
	Warning  string
	Dropped  int
}

// Outcome is the accumulated result of a run.
type Outcome struct {
	Records       []keyword.AnalyzedKeyword
	Results       []batch.Result
	FailedBatches []int
	Warning       string
	Total         int
}

// Plan validates and partitions keywords. Empty input is ErrEmptyInput; input above
// the keyword limit keeps the first keywords and carries a warning.
func (s *Service) Plan(keywords []string) (Plan, error) {
	if len(keywords) == 0 {
		return Plan{}, fmt.Errorf("plan: %w", domain.ErrEmptyInput)
	}
	p := Plan{Keywords: keywords}
	if len(keywords) > s.maxKeywords {
		p.Dropped = len(keywords) - s.maxKeywords
		p.Keywords = keywords[:s.maxKeywords]
		p.Warning = fmt.Sprintf("Input has %d keywords, only the first %d are analyzed.", len(keywords), s.maxKeywords)
		s.logger.Warn("Keyword list truncated",
			zap.Int("received", len(keywords)),
			zap.Int("limit", s.maxKeywords),
		)
	}
	p.Spans = batch.Partition(len(p.Keywords), s.batchSize)
	return p, nil
}

// Ready reports a fatal classifier misconfiguration. Classifiers without a
// preflight check are always ready.
func (s *Service) Ready() error {
	if pf, ok := s.classifier.(Preflight); ok {
		if err := pf.Ready(); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
	}
	return nil
}

// Process plans and runs keywords. See Run.
func (s *Service) Process(ctx context.Context, keywords []string, progress ProgressFunc) (Outcome, error) {
	p, err := s.Plan(keywords)
	if err != nil {
		return Outcome{}, err
	}
	return s.Run(ctx, p, progress)
}

// Run classifies the planned batches sequentially. A failing batch is logged, recorded
// and skipped. A fatal error or context cancellation stops the run and returns the
// partial outcome with the error.
func (s *Service) Run(ctx context.Context, p Plan, progress ProgressFunc) (Outcome, error) {
	if progress == nil {
		progress = func(run.Event) {}
	}
	total := len(p.Keywords)
	batches := len(p.Spans)
	out := Outcome{
		Records: make([]keyword.AnalyzedKeyword, 0, total),
		Results: make([]batch.Result, 0, batches),
		Warning: p.Warning,
		Total:   total,
	}
	retries := s.maxAttempts - 1

	if err := s.Ready(); err != nil {
		s.logger.Error("Run aborted before dispatch", zap.Error(err))
		return out, err
	}

	for i, span := range p.Spans {
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return out, fmt.Errorf("inter-batch delay: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("before batch %d: %w", i+1, err)
		}

		progress(run.Event{
			Kind:     run.EventDispatch,
			Progress: progressOf(len(out.Records), total, percent(i, batches), i, batches),
		})

		recs, err := s.classifier.ClassifyBatch(ctx, p.Keywords[span.Start:span.End], retries)
		var res batch.Result
		switch {
		case err == nil:
			res = batch.NewOK(span, recs)
			out.Records = append(out.Records, recs...)
			metrics.BatchesTotal.WithLabelValues(string(batch.StatusOK)).Inc()
			metrics.KeywordsClassifiedTotal.Add(float64(len(recs)))
		case domain.IsFatal(err):
			s.logger.Error("Run aborted", zap.Int("batch", i+1), zap.Error(err))
			return out, fmt.Errorf("batch %d: %w", i+1, err)
		case ctx.Err() != nil:
			return out, fmt.Errorf("batch %d: %w", i+1, ctx.Err())
		default:
			berr := domain.NewBatchError(i, span.Size(), err)
			s.logger.Error("Batch failed, skipping",
				zap.Int("batch", i+1),
				zap.Int("total_batches", batches),
				zap.Int("keywords", span.Size()),
				zap.Error(err),
			)
			res = batch.NewError(span, berr)
			out.FailedBatches = append(out.FailedBatches, i)
			metrics.BatchesTotal.WithLabelValues(string(batch.StatusError)).Inc()
		}
		out.Results = append(out.Results, res)

		progress(run.Event{
			Kind:     run.EventCompleted,
			Progress: progressOf(len(out.Records), total, percent(i+1, batches), i, batches),
			Result:   res,
		})
	}

	s.logger.Info("Run finished",
		zap.Int("keywords", total),
		zap.Int("records", len(out.Records)),
		zap.Int("batches", batches),
		zap.Int("failed_batches", len(out.FailedBatches)),
	)
	return out, nil
}

func progressOf(processed, total, pct, idx, batches int) run.Progress {
	return run.Progress{
		Processed:    processed,
		Total:        total,
		Percent:      pct,
		Batch:        idx,
		TotalBatches: batches,
	}
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
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
