package observability

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/synxlabs/saferun/executor"
)

// Metrics holds in-memory execution counters for callers without an OTEL
// pipeline. All fields update atomically.
type Metrics struct {
	Executions  atomic.Int64
	Successes   atomic.Int64
	Failures    atomic.Int64
	Timeouts    atomic.Int64
	Denials     atomic.Int64
	totalMicros atomic.Int64
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record accounts for one finished execution attempt.
func (m *Metrics) Record(result *executor.Result, err error) {
	m.Executions.Add(1)
	if result != nil {
		m.totalMicros.Add(result.Duration.Microseconds())
		switch result.Status {
		case executor.StatusSuccess:
			m.Successes.Add(1)
			return
		case executor.StatusTimeout:
			m.Timeouts.Add(1)
			return
		case executor.StatusRateLimited, executor.StatusCircuitOpen:
			m.Denials.Add(1)
			return
		}
	}
	if err != nil || result == nil || !result.Success() {
		m.Failures.Add(1)
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Executions    int64
	Successes     int64
	Failures      int64
	Timeouts      int64
	Denials       int64
	TotalDuration time.Duration
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Executions:    m.Executions.Load(),
		Successes:     m.Successes.Load(),
		Failures:      m.Failures.Load(),
		Timeouts:      m.Timeouts.Load(),
		Denials:       m.Denials.Load(),
		TotalDuration: time.Duration(m.totalMicros.Load()) * time.Microsecond,
	}
}

// MetricsHook feeds Metrics from the executor's post-execute hook point.
type MetricsHook struct {
	metrics *Metrics
}

// NewMetricsHook wraps metrics as an execution hook.
func NewMetricsHook(m *Metrics) *MetricsHook {
	return &MetricsHook{metrics: m}
}

// PreExecute implements executor.Hook.
func (h *MetricsHook) PreExecute(ctx context.Context, cmd *executor.Command) (*executor.Command, error) {
	return cmd, nil
}

// PostExecute implements executor.Hook.
func (h *MetricsHook) PostExecute(ctx context.Context, cmd *executor.Command, result *executor.Result, err error) error {
	h.metrics.Record(result, err)
	return nil
}

// ExecutorTelemetry adapts a Telemetry to the executor's narrower interface.
func ExecutorTelemetry(t Telemetry) executor.Telemetry {
	return &executorTelemetry{t: t}
}

type executorTelemetry struct {
	t Telemetry
}

func (a *executorTelemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return a.t.StartSpan(ctx, name)
}

func (a *executorTelemetry) RecordDuration(name string, seconds float64, labels map[string]string) {
	a.t.RecordDuration(name, seconds, labels)
}

func (a *executorTelemetry) RecordCounter(name string, labels map[string]string) {
	a.t.RecordCounter(name, labels)
}

func (a *executorTelemetry) AddActive(delta int64, labels map[string]string) {
	a.t.AddActive(delta, labels)
}
