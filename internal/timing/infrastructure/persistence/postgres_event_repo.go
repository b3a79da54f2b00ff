package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sendflowr/pulse/internal/timing/domain"
)

// PostgresEventRepository reads engagement history from the analytical
// event store in PostgreSQL.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// ClickEvents returns click timestamps within the lookback horizon,
// oldest first.
func (r *PostgresEventRepository) ClickEvents(ctx context.Context, universalID string, lookbackDays int) ([]time.Time, error) {
	query := `
		SELECT event_timestamp
		FROM engagement_events
		WHERE universal_id = $1
		  AND event_type = 'clicked'
		  AND event_timestamp >= NOW() - ($2 * INTERVAL '1 day')
		ORDER BY event_timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, universalID, lookbackDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timestamps []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, rows.Err()
}

// EventCounts aggregates the recency and frequency features in a single
// round trip.
func (r *PostgresEventRepository) EventCounts(ctx context.Context, universalID string) (domain.EngagementCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'clicked' AND event_timestamp >= NOW() - INTERVAL '30 days'),
			COUNT(*) FILTER (WHERE event_type = 'clicked' AND event_timestamp >= NOW() - INTERVAL '7 days'),
			COUNT(*) FILTER (WHERE event_type = 'clicked' AND event_timestamp >= NOW() - INTERVAL '1 day'),
			COUNT(*) FILTER (WHERE event_type = 'opened' AND event_timestamp >= NOW() - INTERVAL '30 days'),
			COUNT(*) FILTER (WHERE event_type = 'opened' AND event_timestamp >= NOW() - INTERVAL '7 days'),
			COUNT(*) FILTER (WHERE event_type = 'delivered' AND event_timestamp >= NOW() - INTERVAL '30 days'),
			MAX(event_timestamp) FILTER (WHERE event_type = 'clicked'),
			MAX(event_timestamp) FILTER (WHERE event_type = 'opened'),
			MAX(event_timestamp) FILTER (WHERE event_type = 'delivered')
		FROM engagement_events
		WHERE universal_id = $1
	`

	var counts domain.EngagementCounts
	err := r.pool.QueryRow(ctx, query, universalID).Scan(
		&counts.ClickCount30d,
		&counts.ClickCount7d,
		&counts.ClickCount1d,
		&counts.OpenCount30d,
		&counts.OpenCount7d,
		&counts.DeliveryCount30d,
		&counts.LastClick,
		&counts.LastOpen,
		&counts.LastDelivered,
	)
	return counts, err
}

// LatestSuppressionEvents returns the newest observation of each
// circuit-breaker event type, newest first.
func (r *PostgresEventRepository) LatestSuppressionEvents(ctx context.Context, universalID string) ([]domain.EventStamp, error) {
	types := make([]string, 0, len(domain.CircuitBreakerWindows))
	for eventType := range domain.CircuitBreakerWindows {
		types = append(types, eventType)
	}

	query := `
		SELECT event_type, MAX(event_timestamp) AS latest
		FROM engagement_events
		WHERE universal_id = $1
		  AND event_type = ANY($2)
		GROUP BY event_type
		ORDER BY latest DESC
	`

	rows, err := r.pool.Query(ctx, query, universalID, types)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stamps []domain.EventStamp
	for rows.Next() {
		var stamp domain.EventStamp
		if err := rows.Scan(&stamp.EventType, &stamp.Timestamp); err != nil {
			return nil, err
		}
		stamps = append(stamps, stamp)
	}
	return stamps, rows.Err()
}

// LatestHotPathEvent returns the newest high-intent signal within the
// window, or nil when none fired.
func (r *PostgresEventRepository) LatestHotPathEvent(ctx context.Context, universalID string, window time.Duration) (*domain.EventStamp, error) {
	query := `
		SELECT event_type, event_timestamp
		FROM engagement_events
		WHERE universal_id = $1
		  AND event_type = ANY($2)
		  AND event_timestamp >= $3
		ORDER BY event_timestamp DESC
		LIMIT 1
	`

	cutoff := time.Now().UTC().Add(-window)
	var stamp domain.EventStamp
	err := r.pool.QueryRow(ctx, query, universalID, domain.HotPathEventTypes, cutoff).
		Scan(&stamp.EventType, &stamp.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stamp, nil
}

// ActiveIdentities lists identities with at least minEvents clicks in
// the last 90 days, most active first.
func (r *PostgresEventRepository) ActiveIdentities(ctx context.Context, minEvents int) ([]string, error) {
	query := `
		SELECT universal_id
		FROM engagement_events
		WHERE event_type = 'clicked'
		  AND event_timestamp >= NOW() - INTERVAL '90 days'
		GROUP BY universal_id
		HAVING COUNT(*) >= $1
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.pool.Query(ctx, query, minEvents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
