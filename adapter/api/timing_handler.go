package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	identityApp "github.com/sendflowr/pulse/internal/identity/application"
	identityDomain "github.com/sendflowr/pulse/internal/identity/domain"
	"github.com/sendflowr/pulse/internal/timing/application/services"
	"github.com/sendflowr/pulse/internal/timing/domain"
)

// TimingHandler serves the decision and feature endpoints.
type TimingHandler struct {
	decisions *services.DecisionService
	features  *services.FeatureService
	resolver  *identityApp.Resolver
	logger    *slog.Logger
}

// NewTimingHandler creates a new TimingHandler.
func NewTimingHandler(
	decisions *services.DecisionService,
	features *services.FeatureService,
	resolver *identityApp.Resolver,
	logger *slog.Logger,
) *TimingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimingHandler{
		decisions: decisions,
		features:  features,
		resolver:  resolver,
		logger:    logger,
	}
}

// identityKeys is the raw-key form of an identity in a request body.
type identityKeys struct {
	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"`
	ESPUserID         string `json:"esp_user_id,omitempty"`
	KlaviyoID         string `json:"klaviyo_id,omitempty"`
	ShopifyCustomerID string `json:"shopify_customer_id,omitempty"`
	DeviceSignature   string `json:"device_signature,omitempty"`
}

func (k identityKeys) toDomain() identityDomain.Keys {
	return identityDomain.Keys{
		Email:             k.Email,
		Phone:             k.Phone,
		ESPUserID:         k.ESPUserID,
		KlaviyoID:         k.KlaviyoID,
		ShopifyCustomerID: k.ShopifyCustomerID,
		DeviceSignature:   k.DeviceSignature,
	}
}

// channelBody carries delivery-channel hints for the latency estimator.
type channelBody struct {
	Channel                string  `json:"channel,omitempty"`
	Provider               string  `json:"provider,omitempty"`
	CampaignType           string  `json:"campaign_type,omitempty"`
	PayloadSizeBytes       int     `json:"payload_size_bytes,omitempty"`
	QueueDepthEstimate     int     `json:"queue_depth_estimate,omitempty"`
	LatencyEstimateSeconds float64 `json:"latency_estimate_seconds,omitempty"`
}

// timingDecisionRequest accepts either a pre-resolved universal id or
// raw identity keys.
type timingDecisionRequest struct {
	UniversalID string        `json:"universal_id,omitempty"`
	Identity    *identityKeys `json:"identity,omitempty"`
	SendAfter   *time.Time    `json:"send_after,omitempty"`
	SendBefore  *time.Time    `json:"send_before,omitempty"`
	Channel     *channelBody  `json:"channel,omitempty"`
}

// timingDecisionResponse wraps the decision with resolution metadata
// when raw keys were supplied.
type timingDecisionResponse struct {
	*domain.TimingDecision
	ResolutionConfidence *float64 `json:"resolution_confidence,omitempty"`
}

// TimingDecision handles POST /v1/timing-decision.
func (h *TimingHandler) TimingDecision(w http.ResponseWriter, r *http.Request) {
	var req timingDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var resolutionConfidence *float64
	universalID := req.UniversalID
	if universalID == "" {
		if req.Identity == nil {
			writeError(w, http.StatusBadRequest, "universal_id or identity keys required")
			return
		}
		resolution, err := h.resolver.Resolve(r.Context(), req.Identity.toDomain())
		if err != nil {
			h.logger.Error("identity resolution failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "identity resolution unavailable")
			return
		}
		universalID = resolution.UniversalID
		resolutionConfidence = &resolution.Confidence
	}

	decisionReq := services.DecisionRequest{
		UniversalID: universalID,
		SendAfter:   req.SendAfter,
		SendBefore:  req.SendBefore,
	}
	if req.Channel != nil {
		decisionReq.Channel = services.ChannelContext{
			Channel:               req.Channel.Channel,
			Provider:              req.Channel.Provider,
			CampaignType:          req.Channel.CampaignType,
			PayloadSizeBytes:      req.Channel.PayloadSizeBytes,
			QueueDepthEstimate:    req.Channel.QueueDepthEstimate,
			DefaultLatencySeconds: req.Channel.LatencyEstimateSeconds,
		}
	}

	decision, err := h.decisions.Decide(r.Context(), decisionReq)
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, timingDecisionResponse{
		TimingDecision:       decision,
		ResolutionConfidence: resolutionConfidence,
	})
}

// legacyPredictResponse is the hourly-granularity compatibility shape.
type legacyPredictResponse struct {
	UniversalID string  `json:"universal_id"`
	BestHourUTC int     `json:"best_hour_utc"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	ModelVersion string `json:"model_version"`
}

// Predict handles POST /v1/predict, the legacy hourly path: the minute
// curve is folded into 24 hourly buckets and the best hour returned.
func (h *TimingHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req timingDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UniversalID == "" {
		writeError(w, http.StatusBadRequest, "universal_id required")
		return
	}

	features, err := h.features.GetOrCompute(r.Context(), req.UniversalID)
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}

	bestHour, probability := foldToHours(features.Curve)
	writeJSON(w, http.StatusOK, legacyPredictResponse{
		UniversalID:  req.UniversalID,
		BestHourUTC:  bestHour,
		Probability:  probability,
		Confidence:   features.CurveConfidence,
		ModelVersion: "hourly_click_based",
	})
}

// foldToHours sums the minute curve into 24 hourly buckets across all
// seven days and returns the heaviest hour.
func foldToHours(curve *domain.EngagementCurve) (int, float64) {
	var hours [24]float64
	for slot := 0; slot < domain.MinutesPerWeek; slot++ {
		hours[(slot%domain.MinutesPerDay)/domain.MinutesPerHour] += curve.ProbabilityAt(slot)
	}
	best := 0
	for h := 1; h < 24; h++ {
		if hours[h] > hours[best] {
			best = h
		}
	}
	return best, hours[best]
}

// featuresResponse is the read shape for GET /v1/features/{universalID}.
type featuresResponse struct {
	UniversalID     string              `json:"universal_id"`
	Version         string              `json:"version"`
	CurveConfidence float64             `json:"curve_confidence"`
	Sharpness       float64             `json:"sharpness"`
	PeakSlot        int                 `json:"peak_slot"`
	PeakLabel       string              `json:"peak_label"`
	PeakWindows     []domain.PeakWindow `json:"peak_windows"`
	Counts          featureCounts       `json:"counts"`
	ComputedAt      time.Time           `json:"computed_at"`
}

type featureCounts struct {
	Clicks30d     int `json:"clicks_30d"`
	Clicks7d      int `json:"clicks_7d"`
	Clicks1d      int `json:"clicks_1d"`
	Opens30d      int `json:"opens_30d"`
	Opens7d       int `json:"opens_7d"`
	Deliveries30d int `json:"deliveries_30d"`
}

// GetFeatures handles GET /v1/features/{universalID}.
func (h *TimingHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	universalID := r.PathValue("universalID")
	if universalID == "" {
		writeError(w, http.StatusBadRequest, "universal id required")
		return
	}

	features, err := h.features.GetOrCompute(r.Context(), universalID)
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, featuresResponse{
		UniversalID:     features.UniversalID,
		Version:         features.Version,
		CurveConfidence: features.CurveConfidence,
		Sharpness:       features.Curve.Sharpness(),
		PeakSlot:        features.Curve.PeakSlot(),
		PeakLabel:       domain.SlotLabel(features.Curve.PeakSlot()),
		PeakWindows:     features.PeakWindows,
		Counts: featureCounts{
			Clicks30d:     features.Counts.ClickCount30d,
			Clicks7d:      features.Counts.ClickCount7d,
			Clicks1d:      features.Counts.ClickCount1d,
			Opens30d:      features.Counts.OpenCount30d,
			Opens7d:       features.Counts.OpenCount7d,
			Deliveries30d: features.Counts.DeliveryCount30d,
		},
		ComputedAt: features.ComputedAt,
	})
}

// computeRequest optionally narrows the recompute to one identity.
type computeRequest struct {
	UniversalID string `json:"universal_id,omitempty"`
}

// ComputeFeatures handles POST /v1/features/compute. Without a body it
// recomputes every active identity.
func (h *TimingHandler) ComputeFeatures(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.UniversalID != "" {
		features, err := h.features.Compute(r.Context(), req.UniversalID)
		if err != nil {
			h.writeDecisionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"computed":    1,
			"universal_id": features.UniversalID,
			"computed_at": features.ComputedAt,
		})
		return
	}

	computed, err := h.features.ComputeAll(r.Context())
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"computed": computed})
}

// writeDecisionError maps domain errors onto HTTP statuses.
func (h *TimingHandler) writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoValidWindow):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrSuppressionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("unhandled decision error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
