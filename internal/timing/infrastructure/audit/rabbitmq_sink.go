// Package audit ships decision explanations to the audit pipeline.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sendflowr/pulse/internal/timing/domain"
)

const (
	// ExchangeName is the topic exchange for decision explanations.
	ExchangeName = "pulse.decision.explanations"

	routingKey = "timing.decision.explained"
)

// explanationEnvelope is the published payload: the full decision plus
// the context snapshot it was made against.
type explanationEnvelope struct {
	Decision    *domain.TimingDecision `json:"decision"`
	Suppression domain.SuppressionHold `json:"suppression"`
	HotPath     domain.HotPath         `json:"hot_path"`
	PublishedAt time.Time              `json:"published_at"`
}

// RabbitMQExplanationSink publishes explanations to a topic exchange.
type RabbitMQExplanationSink struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewRabbitMQExplanationSink connects and declares the exchange.
func NewRabbitMQExplanationSink(url string, logger *slog.Logger) (*RabbitMQExplanationSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("explanation sink connected", "exchange", ExchangeName)

	return &RabbitMQExplanationSink{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

// StoreExplanation publishes the explanation envelope. Callers treat
// failures as best effort; the error is returned for logging only.
func (s *RabbitMQExplanationSink) StoreExplanation(ctx context.Context, decision *domain.TimingDecision, signals domain.ContextSignals) error {
	payload, err := json.Marshal(explanationEnvelope{
		Decision:    decision,
		Suppression: signals.Suppression,
		HotPath:     signals.HotPath,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    decision.DecisionID,
			Body:         payload,
		},
	)
	if err != nil {
		s.logger.Error("failed to publish explanation",
			"decision_id", decision.DecisionID,
			"error", err,
		)
		return err
	}

	s.logger.Debug("explanation published",
		"decision_id", decision.DecisionID,
		"size", len(payload),
	)
	return nil
}

// Ping reports whether the broker connection is still open.
func (s *RabbitMQExplanationSink) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.conn.IsClosed() {
		return fmt.Errorf("connection closed")
	}
	return nil
}

// Close closes the publisher connection.
func (s *RabbitMQExplanationSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warn("error closing channel", "error", err)
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// NoopExplanationSink drops explanations; used when no broker is
// configured.
type NoopExplanationSink struct{}

// NewNoopExplanationSink creates a sink that discards everything.
func NewNoopExplanationSink() *NoopExplanationSink {
	return &NoopExplanationSink{}
}

// StoreExplanation discards the explanation.
func (s *NoopExplanationSink) StoreExplanation(context.Context, *domain.TimingDecision, domain.ContextSignals) error {
	return nil
}
