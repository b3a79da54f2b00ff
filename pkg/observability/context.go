package observability

import (
	"context"

	"github.com/google/uuid"
)

// Correlation plumbing shared by the HTTP middleware, the CLI, and the
// slog handler. Every decision request carries a correlation id so the
// emitted decision, its explanation, and its log lines can be joined.

type correlationIDKey struct{}

type operationKey struct{}

// WithCorrelationID attaches a correlation ID to the context, minting
// one when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation ID, or "" when none
// was attached.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// WithOperation tags the context with the operation being served, e.g.
// "timing_decision" or "compute_features".
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFromContext returns the operation name, or "" when none was
// attached.
func OperationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}

// NewRequestContext prepares a context for one inbound request,
// adopting the caller's correlation ID when supplied so decisions stay
// traceable across the ESP's send pipeline.
func NewRequestContext(ctx context.Context, parentCorrelationID string) context.Context {
	return WithCorrelationID(ctx, parentCorrelationID)
}
