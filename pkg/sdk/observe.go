package ragchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	chunks     prometheus.Counter
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragchat",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragchat",
			Subsystem: "sdk",
			Name:      "ingested_chunks_total",
			Help:      "Chunks stored through the SDK.",
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.chunks); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("ragchat: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("ragchat: register metric: %w", err)
	}
	return nil
}

// observer logs and counts SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// Operation outcomes, used as the status label.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeBackend  = "backend_error"
	outcomeCanceled = "canceled"
	outcomeError    = "error"
)

// outcome classifies err so dashboards can separate caller mistakes from backend trouble.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnsupportedDocument):
		return outcomeRejected
	case errors.Is(err, ErrBackendRequestFailed),
		errors.Is(err, ErrEmbeddingUnavailable),
		errors.Is(err, ErrEmptyEmbeddingBatch),
		errors.Is(err, ErrInconsistentEmbeddingDimension):
		return outcomeBackend
	default:
		return outcomeError
	}
}

func (o *observer) observe(ctx context.Context, op string, start time.Time, err error, attrs ...slog.Attr) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs = append(attrs, slog.String("op", op), slog.String("status", status), slog.Duration("duration", dur))
	switch status {
	case outcomeOK:
		o.logger.LogAttrs(ctx, slog.LevelDebug, "operation completed", attrs...)
	case outcomeRejected, outcomeCanceled:
		o.logger.LogAttrs(ctx, slog.LevelInfo, "operation rejected", append(attrs, slog.Any("error", err))...)
	default:
		o.logger.LogAttrs(ctx, slog.LevelWarn, "operation failed", append(attrs, slog.Any("error", err))...)
	}
}

func (o *observer) addChunks(n int) {
	if o == nil || o.metrics == nil || n <= 0 {
		return
	}
	o.metrics.chunks.Add(float64(n))
}
