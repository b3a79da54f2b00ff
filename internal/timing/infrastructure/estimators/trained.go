package estimators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/sendflowr/pulse/internal/timing/application/services"
	"github.com/sony/gobreaker/v2"
)

// latencyModel holds the regression coefficients loaded from disk.
// Features: hour-of-day encoded as sin/cos, payload KB, queue depth.
type latencyModel struct {
	Version    string  `json:"version"`
	Intercept  float64 `json:"intercept"`
	HourSin    float64 `json:"hour_sin"`
	HourCos    float64 `json:"hour_cos"`
	PayloadKB  float64 `json:"payload_kb"`
	QueueDepth float64 `json:"queue_depth"`
}

// TrainedLatencyEstimator runs a regression model behind a circuit
// breaker. Any failure in the trained path falls back to the heuristic
// transparently; the breaker stops hammering a bad model.
type TrainedLatencyEstimator struct {
	model    *latencyModel
	fallback *HeuristicLatencyEstimator
	breaker  *gobreaker.CircuitBreaker[float64]
	logger   *slog.Logger
}

// NewTrainedLatencyEstimator loads the coefficient file and wires the
// breaker. A missing or unreadable model file is an error; callers fall
// back to the heuristic estimator at construction time.
func NewTrainedLatencyEstimator(modelPath string, logger *slog.Logger) (*TrainedLatencyEstimator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read latency model: %w", err)
	}
	var model latencyModel
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("parse latency model: %w", err)
	}

	settings := gobreaker.Settings{
		Name:    "latency-model",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("latency model breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &TrainedLatencyEstimator{
		model:    &model,
		fallback: NewHeuristicLatencyEstimator(),
		breaker:  gobreaker.NewCircuitBreaker[float64](settings),
		logger:   logger,
	}, nil
}

// PredictLatency evaluates the regression, falling back to the
// heuristic when the breaker is open or the model misbehaves.
func (e *TrainedLatencyEstimator) PredictLatency(ctx context.Context, channel services.ChannelContext, instant time.Time) (float64, error) {
	seconds, err := e.breaker.Execute(func() (float64, error) {
		return e.evaluate(channel, instant)
	})
	if err != nil {
		e.logger.Warn("trained latency path failed, using heuristic", "error", err)
		return e.fallback.PredictLatency(ctx, channel, instant)
	}
	return seconds, nil
}

func (e *TrainedLatencyEstimator) evaluate(channel services.ChannelContext, instant time.Time) (float64, error) {
	utc := instant.UTC()
	hourAngle := 2 * math.Pi * (float64(utc.Hour()) + float64(utc.Minute())/60) / 24

	seconds := e.model.Intercept +
		e.model.HourSin*math.Sin(hourAngle) +
		e.model.HourCos*math.Cos(hourAngle) +
		e.model.PayloadKB*float64(channel.PayloadSizeBytes)/1024 +
		e.model.QueueDepth*float64(channel.QueueDepthEstimate)

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("model produced invalid estimate %f", seconds)
	}
	if seconds > MaxLatencySeconds {
		seconds = MaxLatencySeconds
	}
	return seconds, nil
}
