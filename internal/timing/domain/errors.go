package domain

import "errors"

var (
	// ErrValidation rejects malformed or missing identity or bounds
	// before any computation runs.
	ErrValidation = errors.New("invalid timing request")
	// ErrNoValidWindow means the bounds normalize to an empty slot set.
	ErrNoValidWindow = errors.New("no valid minute slots within the provided window")
	// ErrSuppressionConflict means the suppression release falls after
	// the requested window end.
	ErrSuppressionConflict = errors.New("recipient is suppressed for the requested window")
	// ErrUpstreamUnavailable wraps collaborator failures with no defined
	// local fallback.
	ErrUpstreamUnavailable = errors.New("upstream collaborator unavailable")
)
