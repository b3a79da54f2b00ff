package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModelVersion identifies the decision model emission format.
const ModelVersion = "minute_level_click_based"

// AppliedWeight is one append-only audit entry attached to a decision,
// recorded in application order.
type AppliedWeight struct {
	Signal string  `json:"signal"`
	Weight float64 `json:"weight"`
}

// DecisionDebug is the explainability payload carried by every decision.
type DecisionDebug struct {
	BaseCurvePeakMinute int             `json:"base_curve_peak_minute"`
	AppliedWeights      []AppliedWeight `json:"applied_weights"`
	Suppressed          bool            `json:"suppressed"`
}

// TimingDecision is the single immutable decision record emitted per
// request. A new request yields a new decision with a new id; decisions
// are never updated after emission.
type TimingDecision struct {
	DecisionID             string        `json:"decision_id"`
	UniversalID            string        `json:"universal_id"`
	TargetMinuteUTC        int           `json:"target_minute_utc"`
	TriggerTimestampUTC    time.Time     `json:"trigger_timestamp_utc"`
	LatencyEstimateSeconds float64       `json:"latency_estimate_seconds"`
	ConfidenceScore        float64       `json:"confidence_score"`
	ModelVersion           string        `json:"model_version"`
	ExplanationRef         string        `json:"explanation_ref"`
	CreatedAtUTC           time.Time     `json:"created_at_utc"`
	Debug                  DecisionDebug `json:"debug"`
}

// NewTimingDecision assembles a decision record with a fresh id and
// explanation reference.
func NewTimingDecision(
	universalID string,
	targetMinute int,
	trigger time.Time,
	latencySeconds float64,
	confidence float64,
	debug DecisionDebug,
) *TimingDecision {
	if debug.AppliedWeights == nil {
		debug.AppliedWeights = []AppliedWeight{}
	}
	return &TimingDecision{
		DecisionID:             uuid.NewString(),
		UniversalID:            universalID,
		TargetMinuteUTC:        targetMinute,
		TriggerTimestampUTC:    trigger.UTC(),
		LatencyEstimateSeconds: latencySeconds,
		ConfidenceScore:        confidence,
		ModelVersion:           ModelVersion,
		ExplanationRef:         fmt.Sprintf("explain:%s:%d", universalID, targetMinute),
		CreatedAtUTC:           time.Now().UTC(),
		Debug:                  debug,
	}
}
