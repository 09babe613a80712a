package keywordsense

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/keywordsense/internal/usecase/health"
)

// HealthStatus is the aggregated state of the model backend and the cache.
// Checks is keyed by "classifier" and "database"; a custom Completer has no check.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// OK reports whether every configured component passed.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Health checks the configured components, each bounded by a short timeout.
func (c *Client) Health(ctx context.Context) (h HealthStatus) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, nil, "status", h.Status) }()

	report := c.healthSvc.Check(ctx)
	h = HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for k, v := range report.Checks {
		h.Checks[k] = string(v)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
