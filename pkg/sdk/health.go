package ragchat

import (
	"context"
	"sort"

	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
)

// HealthStatus is the aggregated backend health.
type HealthStatus struct {
	Status string            // "ok", "degraded" or "error"
	Checks map[string]string // component name → "ok" or "error"
}

// Healthy reports whether every component passed.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Failing returns the names of failed components, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, state := range h.Checks {
		if state != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Health checks the storage, embedding and chat backends concurrently.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, state := range report.Checks {
		h.Checks[name] = string(state)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
