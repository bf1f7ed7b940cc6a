// Package health aggregates dependency checks into one report.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 3 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Component is a named dependency.
type Component struct {
	Name    string
	Checker Checker
}

// Service coordinates health checks.
type Service struct {
	components []Component
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Service. Components with a nil Checker are skipped.
func New(timeout time.Duration, logger *zap.Logger, components ...Component) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]Component, 0, len(components))
	for _, c := range components {
		if c.Checker != nil {
			active = append(active, c)
		}
	}
	return &Service{components: active, timeout: timeout, logger: logger}
}

// Check runs all checks concurrently, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.components))
	var mu sync.Mutex

	var g errgroup.Group
	for _, c := range s.components {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.Checker.HealthCheck(cctx); err != nil {
				res = CheckError
				s.logger.Warn("Health check failed", zap.String("component", c.Name), zap.Error(err))
			}
			mu.Lock()
			checks[c.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
