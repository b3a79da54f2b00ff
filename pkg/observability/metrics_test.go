package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}

	// Must be safe to call with any input.
	m.Counter(MetricDecisionsEmitted, 1)
	m.Gauge("pulse.cache.entries", 1.0)
	m.Histogram("pulse.decisions.confidence", 0.62)
	m.Timing(MetricDecisionDuration, time.Second)
}

func TestInMemoryMetrics(t *testing.T) {
	t.Run("counters accumulate", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter(MetricDecisionsEmitted, 1)
		m.Counter(MetricDecisionsEmitted, 1)
		m.Counter(MetricDecisionsEmitted, 1)

		assert.Equal(t, int64(3), m.GetCounter(MetricDecisionsEmitted))
	})

	t.Run("tags partition counters", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter(MetricDecisionsSuppressed, 1, T("reason", "unsubscribe_request"))
		m.Counter(MetricDecisionsSuppressed, 1, T("reason", "complaint"))
		m.Counter(MetricDecisionsSuppressed, 1, T("reason", "unsubscribe_request"))

		assert.Equal(t, int64(2), m.GetCounter(MetricDecisionsSuppressed, T("reason", "unsubscribe_request")))
		assert.Equal(t, int64(1), m.GetCounter(MetricDecisionsSuppressed, T("reason", "complaint")))
		assert.Equal(t, int64(0), m.GetCounter(MetricDecisionsSuppressed, T("reason", "support_ticket")))
	})

	t.Run("gauges overwrite", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Gauge("pulse.cache.entries", 120)
		m.Gauge("pulse.cache.entries", 80)

		assert.Equal(t, 80.0, m.GetGauge("pulse.cache.entries"))
	})

	t.Run("histograms collect every sample", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Histogram("pulse.decisions.confidence", 0.12)
		m.Histogram("pulse.decisions.confidence", 0.58)
		m.Histogram("pulse.decisions.confidence", 0.91)

		values := m.GetHistogram("pulse.decisions.confidence")
		assert.Len(t, values, 3)
		assert.Contains(t, values, 0.58)
	})

	t.Run("timings collect every sample", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Timing(MetricDecisionDuration, 4*time.Millisecond)
		m.Timing(MetricDecisionDuration, 9*time.Millisecond)

		timings := m.GetTimings(MetricDecisionDuration)
		assert.Len(t, timings, 2)
		assert.Contains(t, timings, 9*time.Millisecond)
	})

	t.Run("reset clears everything", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter(MetricDecisionsEmitted, 1)
		m.Gauge("pulse.cache.entries", 1.0)
		m.Timing(MetricDecisionDuration, time.Second)

		m.Reset()

		assert.Equal(t, int64(0), m.GetCounter(MetricDecisionsEmitted))
		assert.Equal(t, 0.0, m.GetGauge("pulse.cache.entries"))
		assert.Empty(t, m.GetTimings(MetricDecisionDuration))
	})
}

func TestFormatKey(t *testing.T) {
	tests := []struct {
		name     string
		metric   string
		tags     []Tag
		expected string
	}{
		{
			name:     "no tags",
			metric:   MetricFeaturesComputed,
			tags:     nil,
			expected: "pulse.features.computed",
		},
		{
			name:     "single tag",
			metric:   MetricDecisionsSuppressed,
			tags:     []Tag{T("reason", "complaint")},
			expected: "pulse.decisions.suppressed:reason=complaint",
		},
		{
			name:     "multiple tags in order",
			metric:   MetricOperationTotal,
			tags:     []Tag{T("operation", "predict"), T("status", "ok")},
			expected: "pulse.operation.total:operation=predict:status=ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatKey(tt.metric, tt.tags))
		})
	}
}
