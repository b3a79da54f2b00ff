package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/sendflowr/pulse/internal/identity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteIdentityRepository {
	t.Helper()
	dbConn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConn.Close() })

	repo, err := NewSQLiteIdentityRepository(dbConn)
	require.NoError(t, err)
	return repo
}

func TestSQLiteRepo_MappingRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := domain.Identifier{Kind: domain.KindEmailHash, Value: "abc123"}

	got, err := repo.UniversalID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got, "miss returns empty string")

	require.NoError(t, repo.SaveMapping(ctx, id, "pl_0000000000000001", 1.0))

	got, err = repo.UniversalID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pl_0000000000000001", got)
}

func TestSQLiteRepo_SaveMappingIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := domain.Identifier{Kind: domain.KindKlaviyoID, Value: "k_1"}

	require.NoError(t, repo.SaveMapping(ctx, id, "pl_first0000000000", 0.85))
	// A second write for the same pair must not replace the first.
	require.NoError(t, repo.SaveMapping(ctx, id, "pl_second000000000", 0.85))

	got, err := repo.UniversalID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pl_first0000000000", got)
}

func TestSQLiteRepo_AllIdentifiers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveMapping(ctx, domain.Identifier{Kind: domain.KindEmailHash, Value: "h1"}, "pl_a", 1.0))
	require.NoError(t, repo.SaveMapping(ctx, domain.Identifier{Kind: domain.KindKlaviyoID, Value: "k1"}, "pl_a", 0.85))
	require.NoError(t, repo.SaveMapping(ctx, domain.Identifier{Kind: domain.KindEmailHash, Value: "h2"}, "pl_b", 1.0))

	all, err := repo.AllIdentifiers(ctx, "pl_a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"email_hash": "h1",
		"klaviyo_id": "k1",
	}, all)
}

func TestSQLiteRepo_ConnectedBothDirections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := domain.Identifier{Kind: domain.KindShopifyCustomerID, Value: "12345"}
	b := domain.Identifier{Kind: domain.KindEmailHash, Value: "h1"}

	require.NoError(t, repo.AddEdge(ctx, domain.Edge{
		A: a, B: b, Weight: 0.9, Source: "shopify_order", CreatedAt: time.Now().UTC(),
	}))

	fromA, err := repo.Connected(ctx, a)
	require.NoError(t, err)
	require.Len(t, fromA, 1)
	assert.Equal(t, b, fromA[0].Identifier)
	assert.Equal(t, 0.9, fromA[0].Weight)

	fromB, err := repo.Connected(ctx, b)
	require.NoError(t, err)
	require.Len(t, fromB, 1)
	assert.Equal(t, a, fromB[0].Identifier)
}

func TestSQLiteRepo_LogStep(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.LogStep(ctx, domain.ResolutionStep{
		ResolutionID: "res_abc",
		UniversalID:  "pl_a",
		Identifier:   domain.Identifier{Kind: domain.KindEmailHash, Value: "h1"},
		Rule:         "match:email_hash",
		Confidence:   1.0,
		At:           time.Now().UTC(),
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, repo.dbConn.QueryRow(`SELECT COUNT(*) FROM resolution_steps`).Scan(&count))
	assert.Equal(t, 1, count)
}
