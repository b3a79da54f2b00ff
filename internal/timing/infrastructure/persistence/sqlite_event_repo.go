package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/sendflowr/pulse/internal/timing/domain"
)

const sqliteEventSchema = `
CREATE TABLE IF NOT EXISTS engagement_events (
	universal_id    TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	event_timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_engagement_events_identity
	ON engagement_events(universal_id, event_type, event_timestamp);
`

// SQLiteEventRepository reads engagement history from a local SQLite
// file, used for local development and the CLI. Timestamps are stored
// as RFC 3339 UTC strings so lexicographic comparison matches temporal
// order.
type SQLiteEventRepository struct {
	dbConn *sql.DB
}

// NewSQLiteEventRepository creates the repository and applies the
// schema.
func NewSQLiteEventRepository(dbConn *sql.DB) (*SQLiteEventRepository, error) {
	if _, err := dbConn.Exec(sqliteEventSchema); err != nil {
		return nil, err
	}
	return &SQLiteEventRepository{dbConn: dbConn}, nil
}

// sqliteTimeLayout is RFC 3339 with a fixed-width fraction, so that
// byte order and temporal order agree.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ClickEvents returns click timestamps within the lookback horizon,
// oldest first.
func (r *SQLiteEventRepository) ClickEvents(ctx context.Context, universalID string, lookbackDays int) ([]time.Time, error) {
	cutoff := sqliteTime(time.Now().AddDate(0, 0, -lookbackDays))

	rows, err := r.dbConn.QueryContext(ctx, `
		SELECT event_timestamp
		FROM engagement_events
		WHERE universal_id = ?1
		  AND event_type = 'clicked'
		  AND event_timestamp >= ?2
		ORDER BY event_timestamp ASC
	`, universalID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timestamps []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		ts, err := parseSQLiteTime(raw)
		if err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, rows.Err()
}

// EventCounts aggregates the recency and frequency features.
func (r *SQLiteEventRepository) EventCounts(ctx context.Context, universalID string) (domain.EngagementCounts, error) {
	now := time.Now()
	d30 := sqliteTime(now.AddDate(0, 0, -30))
	d7 := sqliteTime(now.AddDate(0, 0, -7))
	d1 := sqliteTime(now.AddDate(0, 0, -1))

	var counts domain.EngagementCounts
	var lastClick, lastOpen, lastDelivered sql.NullString

	err := r.dbConn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(event_type = 'clicked' AND event_timestamp >= ?2), 0),
			COALESCE(SUM(event_type = 'clicked' AND event_timestamp >= ?3), 0),
			COALESCE(SUM(event_type = 'clicked' AND event_timestamp >= ?4), 0),
			COALESCE(SUM(event_type = 'opened' AND event_timestamp >= ?2), 0),
			COALESCE(SUM(event_type = 'opened' AND event_timestamp >= ?3), 0),
			MAX(CASE WHEN event_type = 'clicked' THEN event_timestamp END),
			MAX(CASE WHEN event_type = 'opened' THEN event_timestamp END),
			MAX(CASE WHEN event_type = 'delivered' THEN event_timestamp END)
		FROM engagement_events
		WHERE universal_id = ?1
	`, universalID, d30, d7, d1).Scan(
		&counts.ClickCount30d,
		&counts.ClickCount7d,
		&counts.ClickCount1d,
		&counts.OpenCount30d,
		&counts.OpenCount7d,
		&lastClick,
		&lastOpen,
		&lastDelivered,
	)
	if err != nil {
		return domain.EngagementCounts{}, err
	}

	assign := func(raw sql.NullString, dst **time.Time) error {
		if !raw.Valid {
			return nil
		}
		ts, err := parseSQLiteTime(raw.String)
		if err != nil {
			return err
		}
		*dst = &ts
		return nil
	}
	if err := assign(lastClick, &counts.LastClick); err != nil {
		return domain.EngagementCounts{}, err
	}
	if err := assign(lastOpen, &counts.LastOpen); err != nil {
		return domain.EngagementCounts{}, err
	}
	if err := assign(lastDelivered, &counts.LastDelivered); err != nil {
		return domain.EngagementCounts{}, err
	}
	return counts, nil
}

// LatestSuppressionEvents returns the newest observation of each
// circuit-breaker event type, newest first.
func (r *SQLiteEventRepository) LatestSuppressionEvents(ctx context.Context, universalID string) ([]domain.EventStamp, error) {
	rows, err := r.dbConn.QueryContext(ctx, `
		SELECT event_type, MAX(event_timestamp)
		FROM engagement_events
		WHERE universal_id = ?1
		  AND event_type IN ('unsubscribe_request', 'support_ticket', 'complaint')
		GROUP BY event_type
		ORDER BY MAX(event_timestamp) DESC
	`, universalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stamps []domain.EventStamp
	for rows.Next() {
		var stamp domain.EventStamp
		var raw string
		if err := rows.Scan(&stamp.EventType, &raw); err != nil {
			return nil, err
		}
		ts, err := parseSQLiteTime(raw)
		if err != nil {
			return nil, err
		}
		stamp.Timestamp = ts
		stamps = append(stamps, stamp)
	}
	return stamps, rows.Err()
}

// LatestHotPathEvent returns the newest high-intent signal within the
// window, or nil when none fired.
func (r *SQLiteEventRepository) LatestHotPathEvent(ctx context.Context, universalID string, window time.Duration) (*domain.EventStamp, error) {
	cutoff := sqliteTime(time.Now().Add(-window))

	var stamp domain.EventStamp
	var raw string
	err := r.dbConn.QueryRowContext(ctx, `
		SELECT event_type, event_timestamp
		FROM engagement_events
		WHERE universal_id = ?1
		  AND event_type IN ('site_visit', 'sms_click', 'product_view')
		  AND event_timestamp >= ?2
		ORDER BY event_timestamp DESC
		LIMIT 1
	`, universalID, cutoff).Scan(&stamp.EventType, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ts, err := parseSQLiteTime(raw)
	if err != nil {
		return nil, err
	}
	stamp.Timestamp = ts
	return &stamp, nil
}

// ActiveIdentities lists identities with at least minEvents events in
// the last ninety days, most active first.
func (r *SQLiteEventRepository) ActiveIdentities(ctx context.Context, minEvents int) ([]string, error) {
	cutoff := sqliteTime(time.Now().AddDate(0, 0, -90))

	rows, err := r.dbConn.QueryContext(ctx, `
		SELECT universal_id
		FROM engagement_events
		WHERE event_timestamp >= ?2
		GROUP BY universal_id
		HAVING COUNT(*) >= ?1
		ORDER BY COUNT(*) DESC
	`, minEvents, cutoff)
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
