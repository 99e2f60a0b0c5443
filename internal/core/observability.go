package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bomgraft/internal/config"
)

// Clock supplies the current time to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// NewMetricsRecorder builds the recorder named by the metrics configuration.
// reg is only used by the prometheus driver; nil selects the default registerer.
func NewMetricsRecorder(cfg config.Metrics, reg prometheus.Registerer) MetricsRecorder {
	switch cfg.Driver {
	case config.MetricsExpvar:
		return NewExpvarMetricsRecorder("bomgraft_operations")
	case config.MetricsPrometheus:
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		return NewPrometheusMetricsRecorder(reg)
	default:
		return noopMetricsRecorder{}
	}
}
