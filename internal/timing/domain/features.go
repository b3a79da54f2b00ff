package domain

import "time"

// FeatureVersion tags cached feature sets; entries written by older
// models are recomputed on read.
const FeatureVersion = "2.0_minute_level"

// Circuit-breaker hold windows per triggering event type.
var CircuitBreakerWindows = map[string]time.Duration{
	"support_ticket":      48 * time.Hour,
	"complaint":           48 * time.Hour,
	"unsubscribe_request": 168 * time.Hour,
}

// HotPathEventTypes are the high-intent signals that accelerate a send.
var HotPathEventTypes = []string{"site_visit", "sms_click", "product_view"}

// EventStamp is the latest observation of one event type.
type EventStamp struct {
	EventType string
	Timestamp time.Time
}

// EngagementCounts are the recency and frequency features derived from
// the event store.
type EngagementCounts struct {
	LastClick       *time.Time
	LastOpen        *time.Time
	LastDelivered   *time.Time
	ClickCount30d   int
	ClickCount7d    int
	ClickCount1d    int
	OpenCount30d    int
	OpenCount7d     int
	DeliveryCount30d int
}

// FeatureSet is the cached per-identity feature bundle: the engagement
// curve plus its summary statistics.
type FeatureSet struct {
	UniversalID     string
	Version         string
	Curve           *EngagementCurve
	CurveConfidence float64
	PeakWindows     []PeakWindow
	Counts          EngagementCounts
	ComputedAt      time.Time
}

// Current reports whether the cached entry was produced by the current
// feature model.
func (f *FeatureSet) Current() bool {
	return f != nil && f.Version == FeatureVersion && f.Curve != nil
}
