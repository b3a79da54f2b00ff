package application_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sendflowr/pulse/internal/identity/application"
	"github.com/sendflowr/pulse/internal/identity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is an in-memory identity graph for resolver tests.
type memoryRepo struct {
	mappings map[domain.Identifier]string
	edges    map[domain.Identifier][]domain.Neighbor
	steps    []domain.ResolutionStep
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		mappings: make(map[domain.Identifier]string),
		edges:    make(map[domain.Identifier][]domain.Neighbor),
	}
}

func (m *memoryRepo) UniversalID(_ context.Context, id domain.Identifier) (string, error) {
	return m.mappings[id], nil
}

func (m *memoryRepo) AllIdentifiers(_ context.Context, universalID string) (map[string]string, error) {
	out := make(map[string]string)
	for id, uid := range m.mappings {
		if uid == universalID {
			out[id.Kind.String()] = id.Value
		}
	}
	return out, nil
}

func (m *memoryRepo) Connected(_ context.Context, id domain.Identifier) ([]domain.Neighbor, error) {
	return m.edges[id], nil
}

func (m *memoryRepo) SaveMapping(_ context.Context, id domain.Identifier, universalID string, _ float64) error {
	m.mappings[id] = universalID
	return nil
}

func (m *memoryRepo) AddEdge(_ context.Context, edge domain.Edge) error {
	m.edges[edge.A] = append(m.edges[edge.A], domain.Neighbor{Identifier: edge.B, Weight: edge.Weight})
	m.edges[edge.B] = append(m.edges[edge.B], domain.Neighbor{Identifier: edge.A, Weight: edge.Weight})
	return nil
}

func (m *memoryRepo) LogStep(_ context.Context, step domain.ResolutionStep) error {
	m.steps = append(m.steps, step)
	return nil
}

func TestResolve_NoKeysMintsNewID(t *testing.T) {
	resolver := application.NewResolver(newMemoryRepo(), nil)

	res, err := resolver.Resolve(context.Background(), domain.Keys{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.UniversalID, "pl_"))
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, []string{"created_new_id:no_identifiers_provided"}, res.Steps)
}

func TestResolve_DeterministicMatch(t *testing.T) {
	repo := newMemoryRepo()
	emailID := domain.Identifier{Kind: domain.KindEmailHash, Value: domain.HashEmail("user@example.com")}
	repo.mappings[emailID] = "pl_known0000000000"

	resolver := application.NewResolver(repo, nil)
	res, err := resolver.Resolve(context.Background(), domain.Keys{
		Email:     "User@Example.com",
		KlaviyoID: "k_abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "pl_known0000000000", res.UniversalID)
	assert.Equal(t, 1.0, res.Confidence)
	require.NotEmpty(t, res.Steps)
	assert.Contains(t, res.Steps[0], "found_via_email_hash")

	// The new probabilistic key is now mapped to the same universal id.
	uid, err := repo.UniversalID(context.Background(), domain.Identifier{Kind: domain.KindKlaviyoID, Value: "k_abc"})
	require.NoError(t, err)
	assert.Equal(t, "pl_known0000000000", uid)
}

func TestResolve_ProbabilisticMatch(t *testing.T) {
	repo := newMemoryRepo()
	repo.mappings[domain.Identifier{Kind: domain.KindKlaviyoID, Value: "k_abc"}] = "pl_prob000000000000"

	resolver := application.NewResolver(repo, nil)
	res, err := resolver.Resolve(context.Background(), domain.Keys{KlaviyoID: "k_abc"})
	require.NoError(t, err)

	assert.Equal(t, "pl_prob000000000000", res.UniversalID)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
}

func TestResolve_GraphTraversalToDeterministicKey(t *testing.T) {
	repo := newMemoryRepo()
	emailID := domain.Identifier{Kind: domain.KindEmailHash, Value: domain.HashEmail("user@example.com")}
	shopifyID := domain.Identifier{Kind: domain.KindShopifyCustomerID, Value: "12345"}
	repo.mappings[emailID] = "pl_graph00000000000"

	resolver := application.NewResolver(repo, nil)
	require.NoError(t, resolver.Link(context.Background(), shopifyID, emailID, 0.9, "shopify_order"))

	res, err := resolver.Resolve(context.Background(), domain.Keys{ShopifyCustomerID: "12345"})
	require.NoError(t, err)

	assert.Equal(t, "pl_graph00000000000", res.UniversalID)
	assert.InDelta(t, 0.9*0.85, res.Confidence, 1e-9)
	assert.Contains(t, strings.Join(res.Steps, " "), "graph_traversal:shopify_customer_id->email_hash")
}

func TestResolve_UnmatchedKeysCreateStableID(t *testing.T) {
	repo := newMemoryRepo()
	resolver := application.NewResolver(repo, nil)
	keys := domain.Keys{Email: "new@example.com", Phone: "4155551234"}

	first, err := resolver.Resolve(context.Background(), keys)
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Confidence)

	// Idempotent: resolving the same keys again returns the same id.
	second, err := resolver.Resolve(context.Background(), keys)
	require.NoError(t, err)
	assert.Equal(t, first.UniversalID, second.UniversalID)

	// Audit steps were logged for each identifier.
	assert.NotEmpty(t, repo.steps)
}

func TestResolve_ProbabilisticOrderPrefersKlaviyo(t *testing.T) {
	repo := newMemoryRepo()
	repo.mappings[domain.Identifier{Kind: domain.KindKlaviyoID, Value: "k_1"}] = "pl_klaviyo000000000"
	repo.mappings[domain.Identifier{Kind: domain.KindESPUserID, Value: "esp_1"}] = "pl_esp0000000000000"

	resolver := application.NewResolver(repo, nil)
	res, err := resolver.Resolve(context.Background(), domain.Keys{
		KlaviyoID: "k_1",
		ESPUserID: "esp_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pl_klaviyo000000000", res.UniversalID)
}
