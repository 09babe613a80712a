package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
)

func newTestSession(fc *fakeClassifier, batchSize int) *Session {
	svc := New(fc, Config{BatchSize: batchSize, InterBatchDelay: -1, Logger: zap.NewNop()})
	return NewSession(svc, zap.NewNop())
}

func waitRun(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSession_IdleByDefault(t *testing.T) {
	s := newTestSession(&fakeClassifier{}, 2)
	if got := s.Current(); got.Status != run.StatusIdle {
		t.Errorf("status = %q, want idle", got.Status)
	}
	if err := s.Wait(context.Background()); err != nil {
		t.Errorf("Wait on idle session: %v", err)
	}
}

func TestSession_StartCompletes(t *testing.T) {
	fc := &fakeClassifier{}
	s := newTestSession(fc, 2)

	first, err := s.Start(context.Background(), keywords(5))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Status != run.StatusAnalyzing || first.Total != 5 || first.ID == "" {
		t.Errorf("first snapshot: %+v", first)
	}

	waitRun(t, s)
	snap := s.Current()
	if snap.Status != run.StatusCompleted {
		t.Fatalf("status = %q, want completed (error %q)", snap.Status, snap.Error)
	}
	if snap.Percent != 100 || snap.Processed != 5 || len(snap.Records) != 5 || snap.TotalBatches != 3 {
		t.Errorf("final snapshot: %+v", snap)
	}
	if snap.FinishedAt.IsZero() {
		t.Error("expected finish time")
	}
}

func TestSession_ObservedInvariant(t *testing.T) {
	var s *Session
	var violations []string
	fc := &fakeClassifier{fn: func(_ context.Context, call int, kws []string) ([]keyword.AnalyzedKeyword, error) {
		snap := s.Current()
		if snap.Processed != len(snap.Records) || snap.Processed > snap.Total {
			violations = append(violations, fmt.Sprintf("call %d: %d/%d/%d", call, snap.Processed, len(snap.Records), snap.Total))
		}
		if call == 1 {
			return nil, errTransport
		}
		return echo(kws), nil
	}}
	s = newTestSession(fc, 2)

	if _, err := s.Start(context.Background(), keywords(7)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitRun(t, s)

	if len(violations) > 0 {
		t.Errorf("invariant violated: %v", violations)
	}
	snap := s.Current()
	if snap.Status != run.StatusCompleted || snap.Processed != 5 {
		t.Errorf("snapshot: status=%q processed=%d", snap.Status, snap.Processed)
	}
	if len(snap.FailedBatches) != 1 || snap.FailedBatches[0] != 1 {
		t.Errorf("failed batches = %v", snap.FailedBatches)
	}
}

func TestSession_EmptyInput(t *testing.T) {
	fc := &fakeClassifier{}
	s := newTestSession(fc, 2)

	snap, err := s.Start(context.Background(), nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if snap.Status != run.StatusError || s.Current().Status != run.StatusError {
		t.Errorf("status = %q, want error", snap.Status)
	}
	if fc.callCount() != 0 {
		t.Errorf("expected no dispatch, got %d", fc.callCount())
	}
}

func TestSession_MissingCredentialRejectsStart(t *testing.T) {
	fc := &fakeClassifier{readyErr: fmt.Errorf("openai credential is missing: %w", domain.ErrConfiguration)}
	s := newTestSession(fc, 2)

	snap, err := s.Start(context.Background(), keywords(4))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if snap.Status != run.StatusError || s.Current().Status != run.StatusError {
		t.Errorf("status = %q, want error", snap.Status)
	}
	if fc.callCount() != 0 {
		t.Errorf("expected no dispatch, got %d", fc.callCount())
	}
}

func TestSession_FatalErrorFailsRun(t *testing.T) {
	fc := &fakeClassifier{fn: failOn(map[int]error{0: fmt.Errorf("API key is missing: %w", domain.ErrConfiguration)})}
	s := newTestSession(fc, 2)

	if _, err := s.Start(context.Background(), keywords(4)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitRun(t, s)

	snap := s.Current()
	if snap.Status != run.StatusError {
		t.Fatalf("status = %q, want error", snap.Status)
	}
	if !strings.Contains(snap.Error, "API key is missing") {
		t.Errorf("error = %q", snap.Error)
	}
	if fc.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", fc.callCount())
	}
}

func TestSession_RejectsConcurrentStart(t *testing.T) {
	release := make(chan struct{})
	fc := &fakeClassifier{fn: func(ctx context.Context, _ int, kws []string) ([]keyword.AnalyzedKeyword, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return echo(kws), nil
	}}
	s := newTestSession(fc, 2)

	if _, err := s.Start(context.Background(), keywords(2)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Start(context.Background(), keywords(2)); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	close(release)
	waitRun(t, s)

	if _, err := s.Start(context.Background(), keywords(1)); err != nil {
		t.Fatalf("Start after completion: %v", err)
	}
	waitRun(t, s)
	if got := s.Current(); got.Total != 1 || got.Status != run.StatusCompleted {
		t.Errorf("second run snapshot: %+v", got)
	}
}

func TestSession_ResetDropsStaleEvents(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	fc := &fakeClassifier{fn: func(_ context.Context, call int, kws []string) ([]keyword.AnalyzedKeyword, error) {
		if call == 0 {
			entered <- struct{}{}
			<-release // ignores ctx, like an in-flight remote call that cannot be aborted
		}
		return echo(kws), nil
	}}
	s := newTestSession(fc, 2)

	if _, err := s.Start(context.Background(), []string{"old 1", "old 2", "old 3"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered

	s.mu.Lock()
	oldDone := s.done
	s.mu.Unlock()

	s.Reset()
	if got := s.Current(); got.Status != run.StatusIdle {
		t.Fatalf("status after reset = %q, want idle", got.Status)
	}

	if _, err := s.Start(context.Background(), []string{"new"}); err != nil {
		t.Fatalf("Start after reset: %v", err)
	}
	waitRun(t, s)

	close(release)
	select {
	case <-oldDone:
	case <-time.After(5 * time.Second):
		t.Fatal("abandoned run did not exit")
	}

	snap := s.Current()
	if snap.Status != run.StatusCompleted || snap.Total != 1 {
		t.Fatalf("new run snapshot: %+v", snap)
	}
	if len(snap.Records) != 1 || snap.Records[0].Original() != "new" {
		t.Errorf("abandoned run leaked records: %v", originals(snap.Records))
	}
	if fc.callCount() != 2 {
		t.Errorf("abandoned run dispatched more batches: %d calls", fc.callCount())
	}
}

func TestSession_StartOutlivesRequestContext(t *testing.T) {
	fc := &fakeClassifier{}
	s := newTestSession(fc, 1)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.Start(ctx, keywords(3)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	waitRun(t, s)

	if got := s.Current(); got.Status != run.StatusCompleted || got.Processed != 3 {
		t.Errorf("snapshot: status=%q processed=%d", got.Status, got.Processed)
	}
}

func TestSession_Shutdown(t *testing.T) {
	fc := &fakeClassifier{fn: func(ctx context.Context, _ int, _ []string) ([]keyword.AnalyzedKeyword, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s := newTestSession(fc, 1)

	if _, err := s.Start(context.Background(), keywords(2)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := s.Current(); got.Status != run.StatusError {
		t.Errorf("status after shutdown = %q, want error", got.Status)
	}
}
