package observability

import "time"

// Timer measures one operation and records its duration and outcome
// under the pulse.operation.* metrics, tagged with the operation name.
type Timer struct {
	operation string
	start     time.Time
	metrics   Metrics
	tags      []Tag
}

// StartTimer begins timing an operation. Extra tags are recorded
// alongside the operation tag.
func StartTimer(metrics Metrics, operation string, tags ...Tag) *Timer {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Timer{
		operation: operation,
		start:     time.Now(),
		metrics:   metrics,
		tags:      append(tags, T("operation", operation)),
	}
}

// Stop records the duration and increments the operation counter.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	t.metrics.Timing(MetricOperationDuration, duration, t.tags...)
	t.metrics.Counter(MetricOperationTotal, 1, t.tags...)
	return duration
}

// StopErr is Stop plus an error counter increment when err is non-nil.
func (t *Timer) StopErr(err error) time.Duration {
	duration := t.Stop()
	if err != nil {
		t.metrics.Counter(MetricOperationErrors, 1, t.tags...)
	}
	return duration
}
