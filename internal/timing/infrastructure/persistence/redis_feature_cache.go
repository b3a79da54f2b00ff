package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sendflowr/pulse/internal/timing/domain"
)

const (
	featureTTL  = 24 * time.Hour
	decisionTTL = time.Hour
)

// RedisFeatureCache stores computed feature sets and emitted decisions
// with a TTL. Keys: features:v2:{universal_id}, decision:{universal_id}:{decision_id}.
type RedisFeatureCache struct {
	client *redis.Client
}

// NewRedisFeatureCache creates a new RedisFeatureCache.
func NewRedisFeatureCache(client *redis.Client) *RedisFeatureCache {
	return &RedisFeatureCache{client: client}
}

func featureKey(universalID string) string {
	return "features:v2:" + universalID
}

func decisionKey(universalID, decisionID string) string {
	return fmt.Sprintf("decision:%s:%s", universalID, decisionID)
}

// featureDoc is the wire form of a feature set; the curve travels as its
// raw probability array.
type featureDoc struct {
	UniversalID     string                  `json:"universal_id"`
	Version         string                  `json:"version"`
	Probabilities   []float64               `json:"probabilities"`
	CurveConfidence float64                 `json:"curve_confidence"`
	PeakWindows     []peakWindowDoc         `json:"peak_windows"`
	Counts          domain.EngagementCounts `json:"counts"`
	ComputedAt      time.Time               `json:"computed_at"`
}

type peakWindowDoc struct {
	StartSlot       int     `json:"start_slot"`
	MeanProbability float64 `json:"mean_probability"`
}

// Features returns the cached feature set, or nil on miss. A corrupt
// entry is treated as a miss so the caller recomputes.
func (c *RedisFeatureCache) Features(ctx context.Context, universalID string) (*domain.FeatureSet, error) {
	raw, err := c.client.Get(ctx, featureKey(universalID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc featureDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil
	}
	curve, err := domain.NewEngagementCurve(doc.Probabilities)
	if err != nil {
		return nil, nil
	}

	windows := make([]domain.PeakWindow, len(doc.PeakWindows))
	for i, w := range doc.PeakWindows {
		windows[i] = domain.PeakWindow{StartSlot: w.StartSlot, MeanProbability: w.MeanProbability}
	}

	return &domain.FeatureSet{
		UniversalID:     doc.UniversalID,
		Version:         doc.Version,
		Curve:           curve,
		CurveConfidence: doc.CurveConfidence,
		PeakWindows:     windows,
		Counts:          doc.Counts,
		ComputedAt:      doc.ComputedAt,
	}, nil
}

// StoreFeatures overwrites the cached feature set with a fresh TTL.
func (c *RedisFeatureCache) StoreFeatures(ctx context.Context, features *domain.FeatureSet) error {
	windows := make([]peakWindowDoc, len(features.PeakWindows))
	for i, w := range features.PeakWindows {
		windows[i] = peakWindowDoc{StartSlot: w.StartSlot, MeanProbability: w.MeanProbability}
	}

	doc := featureDoc{
		UniversalID:     features.UniversalID,
		Version:         features.Version,
		Probabilities:   features.Curve.Probabilities(),
		CurveConfidence: features.CurveConfidence,
		PeakWindows:     windows,
		Counts:          features.Counts,
		ComputedAt:      features.ComputedAt,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, featureKey(features.UniversalID), raw, featureTTL).Err()
}

// CacheDecision stores an emitted decision for idempotent reads.
func (c *RedisFeatureCache) CacheDecision(ctx context.Context, decision *domain.TimingDecision) error {
	raw, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, decisionKey(decision.UniversalID, decision.DecisionID), raw, decisionTTL).Err()
}
