package run

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/keywordsense/internal/domain/batch"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

func makeRecords(t *testing.T, words ...string) []keyword.AnalyzedKeyword {
	t.Helper()
	out := make([]keyword.AnalyzedKeyword, 0, len(words))
	for _, w := range words {
		k, err := keyword.New(w, "c", true, false, keyword.Informational)
		if err != nil {
			t.Fatalf("keyword.New: %v", err)
		}
		out = append(out, k)
	}
	return out
}

func TestState_ApplyKeepsProcessedInSync(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewState("run-1", 1, 3, "", now)

	dispatch := Event{Kind: EventDispatch, Progress: Progress{Total: 3, Percent: 0, TotalBatches: 2}}
	if err := s.Apply(dispatch); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := s.Snapshot(); got.Processed != 0 || got.TotalBatches != 2 {
		t.Fatalf("after dispatch: %+v", got)
	}

	ok := Event{
		Kind:     EventCompleted,
		Progress: Progress{Processed: 2, Total: 3, Percent: 50, TotalBatches: 2},
		Result:   batch.NewOK(batch.Span{Index: 0, Start: 0, End: 2}, makeRecords(t, "a", "b")),
	}
	if err := s.Apply(ok); err != nil {
		t.Fatalf("completed: %v", err)
	}

	failed := Event{
		Kind:     EventCompleted,
		Progress: Progress{Processed: 2, Total: 3, Percent: 100, Batch: 1, TotalBatches: 2},
		Result:   batch.NewError(batch.Span{Index: 1, Start: 2, End: 3}, errors.New("boom")),
	}
	if err := s.Apply(failed); err != nil {
		t.Fatalf("failed batch: %v", err)
	}

	snap := s.Snapshot()
	if snap.Processed != len(snap.Records) {
		t.Errorf("processed %d != records %d", snap.Processed, len(snap.Records))
	}
	if snap.Processed != 2 {
		t.Errorf("processed = %d, want 2", snap.Processed)
	}
	if len(snap.FailedBatches) != 1 || snap.FailedBatches[0] != 1 {
		t.Errorf("failed batches = %v, want [1]", snap.FailedBatches)
	}
}

func TestState_RejectsOverflow(t *testing.T) {
	s := NewState("run-1", 1, 1, "", time.Now())
	ev := Event{
		Kind:   EventCompleted,
		Result: batch.NewOK(batch.Span{End: 2}, makeRecords(t, "a", "b")),
	}
	if err := s.Apply(ev); err == nil {
		t.Fatal("expected error when records exceed total")
	}
	if s.Processed() != 0 {
		t.Errorf("processed = %d after rejected event", s.Processed())
	}
}

func TestState_CompleteAndFail(t *testing.T) {
	now := time.Unix(1700000000, 0)

	s := NewState("run-1", 1, 0, "", now)
	s.Complete(now.Add(time.Second))
	snap := s.Snapshot()
	if snap.Status != StatusCompleted || snap.Percent != 100 {
		t.Errorf("complete: %+v", snap)
	}
	if err := s.Apply(Event{Kind: EventDispatch}); err == nil {
		t.Error("expected events after completion to be rejected")
	}

	f := NewState("run-2", 2, 5, "", now)
	f.Fail(errors.New("API key is missing"), now)
	snap = f.Snapshot()
	if snap.Status != StatusError {
		t.Errorf("status = %q", snap.Status)
	}
	if snap.Error != "API key is missing" {
		t.Errorf("error = %q", snap.Error)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := NewState("run-1", 1, 2, "", time.Now())
	_ = s.Apply(Event{Kind: EventCompleted, Result: batch.NewOK(batch.Span{End: 1}, makeRecords(t, "a"))})

	snap := s.Snapshot()
	_ = s.Apply(Event{Kind: EventCompleted, Result: batch.NewOK(batch.Span{Index: 1, Start: 1, End: 2}, makeRecords(t, "b"))})

	if len(snap.Records) != 1 {
		t.Errorf("snapshot changed after later apply: %d records", len(snap.Records))
	}
}

func TestIdle(t *testing.T) {
	if Idle().Status != StatusIdle {
		t.Errorf("Idle().Status = %q", Idle().Status)
	}
}
