// Package run holds the state of one classification run and its read-only snapshots.
package run

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/keywordsense/internal/domain/batch"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

// Status is the lifecycle stage of a run.
type Status string

// Run status values.
const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Progress is the counter pair reported to progress observers.
type Progress struct {
	Processed    int
	Total        int
	Percent      int
	Batch        int // zero-based index of the batch the event is about
	TotalBatches int
}

// EventKind distinguishes progress events.
type EventKind string

// Progress event kinds.
const (
	EventDispatch  EventKind = "dispatch"
	EventCompleted EventKind = "completed"
)

// Event is emitted by the orchestrator before each batch dispatch and after each batch completes.
// Result is set only for EventCompleted.
type Event struct {
	Kind     EventKind
	Progress Progress
	Result   batch.Result
}

// State is the mutable state of one run. It has a single owner; readers use Snapshot.
// processed is always len(records), bounded by total.
type State struct {
	id            string
	generation    uint64
	status        Status
	total         int
	totalBatches  int
	percent       int
	records       []keyword.AnalyzedKeyword
	failedBatches []int
	warning       string
	err           error
	startedAt     time.Time
	finishedAt    time.Time
}

// NewState creates the state of a run that starts analyzing total keywords.
func NewState(id string, generation uint64, total int, warning string, now time.Time) *State {
	return &State{
		id:         id,
		generation: generation,
		status:     StatusAnalyzing,
		total:      total,
		records:    make([]keyword.AnalyzedKeyword, 0, total),
		warning:    warning,
		startedAt:  now,
	}
}

// ID returns the run identifier.
func (s *State) ID() string { return s.id }

// Generation returns the run-generation token.
func (s *State) Generation() uint64 { return s.generation }

// Status returns the lifecycle stage.
func (s *State) Status() Status { return s.status }

// Processed returns the number of accumulated records.
func (s *State) Processed() int { return len(s.records) }

// Apply folds a progress event into the state. Events after completion are rejected.
func (s *State) Apply(ev Event) error {
	if s.status != StatusAnalyzing {
		return fmt.Errorf("run %s is %s", s.id, s.status)
	}
	s.totalBatches = ev.Progress.TotalBatches
	s.percent = ev.Progress.Percent

	if ev.Kind != EventCompleted {
		return nil
	}
	if ev.Result.Status() == batch.StatusError {
		s.failedBatches = append(s.failedBatches, ev.Result.Span().Index)
		return nil
	}
	recs := ev.Result.Records()
	if len(s.records)+len(recs) > s.total {
		return fmt.Errorf("run %s: %d records exceed total %d", s.id, len(s.records)+len(recs), s.total)
	}
	s.records = append(s.records, recs...)
	return nil
}

// Complete marks the run finished. An all-failed run is still completed.
func (s *State) Complete(now time.Time) {
	s.status = StatusCompleted
	s.percent = 100
	s.finishedAt = now
}

// Fail marks the run aborted by a fatal error.
func (s *State) Fail(err error, now time.Time) {
	s.status = StatusError
	s.err = err
	s.finishedAt = now
}

// Snapshot returns an immutable copy of the state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		Generation:    s.generation,
		Status:        s.status,
		Processed:     len(s.records),
		Total:         s.total,
		TotalBatches:  s.totalBatches,
		Percent:       s.percent,
		Records:       append([]keyword.AnalyzedKeyword(nil), s.records...),
		FailedBatches: append([]int(nil), s.failedBatches...),
		Warning:       s.warning,
		StartedAt:     s.startedAt,
		FinishedAt:    s.finishedAt,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// Snapshot is a read-only copy of a run state.
type Snapshot struct {
	ID            string
	Generation    uint64
	Status        Status
	Processed     int
	Total         int
	TotalBatches  int
	Percent       int
	Records       []keyword.AnalyzedKeyword
	FailedBatches []int // zero-based batch indices
	Warning       string
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Idle returns the snapshot of a session without a run.
func Idle() Snapshot {
	return Snapshot{Status: StatusIdle}
}
