package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
)

// Session owns the single run state. A run executes in its own goroutine; readers get
// snapshots. Every run carries a generation token and events from a superseded
// generation are dropped.
type Session struct {
	svc    *Service
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu         sync.Mutex
	generation uint64
	state      *run.State
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSession creates an idle session.
func NewSession(svc *Service, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		svc:    svc,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Start begins a background run over keywords and returns its first snapshot.
// It fails with ErrRunInProgress while another run is analyzing. An empty list
// (ErrEmptyInput) or a misconfigured classifier (ErrConfiguration) leaves the
// session in the error state without dispatching a batch.
// The run outlives ctx; use Reset to abandon it.
func (s *Session) Start(ctx context.Context, keywords []string) (run.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil && s.state.Status() == run.StatusAnalyzing {
		return s.state.Snapshot(), fmt.Errorf("run %s: %w", s.state.ID(), domain.ErrRunInProgress)
	}

	s.generation++
	gen := s.generation
	id := s.newID()
	log := s.logger.With(zap.String("run_id", id))

	plan, err := s.svc.Plan(keywords)
	if err == nil {
		err = s.svc.Ready()
	}
	if err != nil {
		st := run.NewState(id, gen, 0, "", s.now())
		st.Fail(err, s.now())
		s.state = st
		s.cancel = nil
		s.done = nil
		log.Warn("Run rejected", zap.Error(err))
		metrics.RunsTotal.WithLabelValues(string(run.StatusError)).Inc()
		return st.Snapshot(), err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.state = run.NewState(id, gen, len(plan.Keywords), plan.Warning, s.now())
	s.cancel = cancel
	s.done = done
	snap := s.state.Snapshot()

	log.Info("Run started",
		zap.Int("keywords", len(plan.Keywords)),
		zap.Int("batches", len(plan.Spans)),
	)

	go func() {
		defer close(done)
		defer cancel()
		outcome, err := s.svc.Run(runCtx, plan, func(ev run.Event) { s.apply(gen, ev) })
		s.finish(gen, outcome, err)
	}()

	return snap, nil
}

func (s *Session) apply(gen uint64, ev run.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state == nil {
		return
	}
	if err := s.state.Apply(ev); err != nil {
		s.logger.Error("Dropped progress event", zap.String("run_id", s.state.ID()), zap.Error(err))
	}
}

func (s *Session) finish(gen uint64, outcome Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state == nil {
		return
	}

	log := s.logger.With(zap.String("run_id", s.state.ID()))
	switch {
	case err == nil:
		s.state.Complete(s.now())
		log.Info("Run completed",
			zap.Int("records", len(outcome.Records)),
			zap.Ints("failed_batches", outcome.FailedBatches),
		)
	case errors.Is(err, context.Canceled):
		s.state.Fail(fmt.Errorf("analysis cancelled: %w", err), s.now())
		log.Warn("Run cancelled", zap.Error(err))
	default:
		s.state.Fail(err, s.now())
		log.Error("Run failed", zap.Error(err))
	}
	metrics.RunsTotal.WithLabelValues(string(s.state.Status())).Inc()
}

// Current returns a snapshot of the current run, or the idle snapshot.
func (s *Session) Current() run.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return run.Idle()
	}
	return s.state.Snapshot()
}

// Reset abandons the current run and returns the session to idle.
// The abandoned run stops at its next suspension point and can no longer change state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
	}
	if s.state != nil {
		s.logger.Info("Run reset", zap.String("run_id", s.state.ID()))
	}
	s.state = nil
	s.cancel = nil
}

// Wait blocks until the most recently started run goroutine exits or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller's context
	}
}

// Shutdown cancels the current run and waits for its goroutine, keeping the final state.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for run: %w", ctx.Err())
	}
}
