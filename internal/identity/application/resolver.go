// Package application implements identity resolution over the identity
// graph repository.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sendflowr/pulse/internal/identity/domain"
)

const probabilisticConfidence = 0.85

// probabilisticOrder ranks probabilistic kinds by reliability.
var probabilisticOrder = []domain.Kind{
	domain.KindKlaviyoID,
	domain.KindShopifyCustomerID,
	domain.KindESPUserID,
	domain.KindDeviceSignature,
}

// Resolver maps caller-supplied identity keys to a universal recipient
// identifier. Deterministic keys are tried first, then the probabilistic
// graph; unmatched keys mint a fresh universal id.
type Resolver struct {
	repo   domain.Repository
	logger *slog.Logger
}

// NewResolver creates a resolver backed by the given graph repository.
func NewResolver(repo domain.Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve maps the supplied keys to a universal id with an audit trail.
// Merges are idempotent: resolving the same keys again returns the same
// universal id.
func (r *Resolver) Resolve(ctx context.Context, keys domain.Keys) (domain.Resolution, error) {
	resolutionID := "res_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	normalized := keys.Normalize()

	if len(normalized) == 0 {
		universalID := domain.NewUniversalID()
		return domain.Resolution{
			UniversalID: universalID,
			Input:       keys,
			Resolved:    map[string]string{},
			Steps:       []string{"created_new_id:no_identifiers_provided"},
			Confidence:  0.0,
			ResolvedAt:  time.Now().UTC(),
		}, nil
	}

	var steps []string

	// Deterministic keys first: a single hit settles the resolution.
	universalID, confidence, detSteps, err := r.deterministicLookup(ctx, normalized)
	steps = append(steps, detSteps...)
	if err != nil {
		return domain.Resolution{}, err
	}

	if universalID == "" {
		// Fall back to the probabilistic graph.
		var probSteps []string
		universalID, confidence, probSteps, err = r.probabilisticLookup(ctx, normalized)
		steps = append(steps, probSteps...)
		if err != nil {
			return domain.Resolution{}, err
		}
	}

	if universalID != "" {
		resolved, err := r.repo.AllIdentifiers(ctx, universalID)
		if err != nil {
			return domain.Resolution{}, err
		}
		if err := r.cacheAndLog(ctx, resolutionID, normalized, universalID, confidence, "match"); err != nil {
			return domain.Resolution{}, err
		}
		r.logger.Debug("identity resolved",
			"universal_id", universalID,
			"confidence", confidence,
		)
		return domain.Resolution{
			UniversalID: universalID,
			Input:       keys,
			Resolved:    resolved,
			Steps:       steps,
			Confidence:  confidence,
			ResolvedAt:  time.Now().UTC(),
		}, nil
	}

	// No match anywhere: mint a new universal id and claim every key.
	universalID = domain.NewUniversalID()
	steps = append(steps, "created_new_id:"+universalID)
	if err := r.cacheAndLog(ctx, resolutionID, normalized, universalID, 1.0, "new_id_created"); err != nil {
		return domain.Resolution{}, err
	}

	resolved := make(map[string]string, len(normalized))
	for _, id := range normalized {
		resolved[id.Kind.String()] = id.Value
	}

	return domain.Resolution{
		UniversalID: universalID,
		Input:       keys,
		Resolved:    resolved,
		Steps:       steps,
		Confidence:  1.0,
		ResolvedAt:  time.Now().UTC(),
	}, nil
}

// Link records a bidirectional edge between two identifiers, weight 1.0
// for deterministic sources and lower for probabilistic ones.
func (r *Resolver) Link(ctx context.Context, a, b domain.Identifier, weight float64, source string) error {
	return r.repo.AddEdge(ctx, domain.Edge{
		A:         a,
		B:         b,
		Weight:    weight,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	})
}

func (r *Resolver) deterministicLookup(ctx context.Context, ids []domain.Identifier) (string, float64, []string, error) {
	var steps []string
	for _, id := range ids {
		if !id.Kind.Deterministic() {
			continue
		}
		universalID, err := r.repo.UniversalID(ctx, id)
		if err != nil {
			return "", 0, steps, err
		}
		if universalID != "" {
			steps = append(steps, fmt.Sprintf("found_via_%s:%s", id.Kind, truncate(id.Value, 8)))
			return universalID, 1.0, steps, nil
		}
		steps = append(steps, fmt.Sprintf("%s_miss:%s", id.Kind, truncate(id.Value, 8)))
	}
	return "", 0, steps, nil
}

func (r *Resolver) probabilisticLookup(ctx context.Context, ids []domain.Identifier) (string, float64, []string, error) {
	byKind := make(map[domain.Kind]domain.Identifier, len(ids))
	for _, id := range ids {
		byKind[id.Kind] = id
	}

	var steps []string
	for _, kind := range probabilisticOrder {
		id, ok := byKind[kind]
		if !ok {
			continue
		}

		universalID, err := r.repo.UniversalID(ctx, id)
		if err != nil {
			return "", 0, steps, err
		}
		if universalID != "" {
			steps = append(steps, fmt.Sprintf("found_via_%s:%s", kind, truncate(id.Value, 12)))
			return universalID, probabilisticConfidence, steps, nil
		}

		// Walk one hop: a link to a deterministic key settles it with
		// the edge weight discounting confidence.
		neighbors, err := r.repo.Connected(ctx, id)
		if err != nil {
			return "", 0, steps, err
		}
		for _, n := range neighbors {
			if !n.Identifier.Kind.Deterministic() {
				continue
			}
			universalID, err := r.repo.UniversalID(ctx, n.Identifier)
			if err != nil {
				return "", 0, steps, err
			}
			if universalID != "" {
				steps = append(steps, fmt.Sprintf("graph_traversal:%s->%s", kind, n.Identifier.Kind))
				return universalID, n.Weight * probabilisticConfidence, steps, nil
			}
		}

		steps = append(steps, fmt.Sprintf("%s_miss:%s", kind, truncate(id.Value, 12)))
	}
	return "", 0, steps, nil
}

func (r *Resolver) cacheAndLog(ctx context.Context, resolutionID string, ids []domain.Identifier, universalID string, confidence float64, rule string) error {
	now := time.Now().UTC()
	for _, id := range ids {
		existing, err := r.repo.UniversalID(ctx, id)
		if err != nil {
			return err
		}
		if existing == "" {
			if err := r.repo.SaveMapping(ctx, id, universalID, confidence); err != nil {
				return err
			}
		}
		if err := r.repo.LogStep(ctx, domain.ResolutionStep{
			ResolutionID: resolutionID,
			UniversalID:  universalID,
			Identifier:   id,
			Rule:         fmt.Sprintf("%s:%s", rule, id.Kind),
			Confidence:   confidence,
			At:           now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
