package analysis

import (
	"context"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
)

// BatchClassifier classifies one batch, retrying rate limits at most retriesRemaining times.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, keywords []string, retriesRemaining int) ([]keyword.AnalyzedKeyword, error)
}

// Preflight is implemented by classifiers that can detect a fatal misconfiguration,
// such as a missing credential, without dispatching a batch.
type Preflight interface {
	Ready() error
}

// ProgressFunc observes orchestrator events. It is called synchronously from the run goroutine.
type ProgressFunc func(ev run.Event)
