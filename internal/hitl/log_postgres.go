package hitl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const escalationsSchema = `
CREATE TABLE IF NOT EXISTS escalations (
    id              UUID PRIMARY KEY,
    hotel_id        TEXT NOT NULL,
    conversation_id BIGINT NOT NULL,
    score           DOUBLE PRECISION NOT NULL,
    reasons         TEXT[] NOT NULL DEFAULT '{}',
    method          TEXT NOT NULL DEFAULT '',
    success         BOOLEAN NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_escalations_hotel ON escalations (hotel_id, created_at DESC);
`

// PostgresLog persists escalation records in Postgres so analytics
// survive restarts and are shared across instances.
type PostgresLog struct {
	db *sql.DB
}

// NewPostgresLog wraps an open database handle.
func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

// EnsureSchema creates the escalations table if it does not exist.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, escalationsSchema); err != nil {
		return fmt.Errorf("hitl: failed to ensure escalations schema: %w", err)
	}
	return nil
}

func (l *PostgresLog) Append(ctx context.Context, rec Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO escalations (id, hotel_id, conversation_id, score, reasons, method, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(),
		rec.HotelID,
		rec.ConversationID,
		rec.Score,
		pq.Array(rec.Reasons),
		rec.Method,
		rec.Success,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("hitl: failed to record escalation: %w", err)
	}
	return nil
}

func (l *PostgresLog) HotelStats(ctx context.Context, hotelID string) (HotelStats, error) {
	stats := HotelStats{HotelID: hotelID}

	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(score), 0) FROM escalations WHERE hotel_id = $1`,
		hotelID,
	).Scan(&stats.Total, &stats.AverageScore)
	if err != nil {
		return HotelStats{}, fmt.Errorf("hitl: failed to query escalation stats: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT conversation_id, score, reasons, method, success, created_at
		 FROM escalations WHERE hotel_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		hotelID, recentStatsLimit,
	)
	if err != nil {
		return HotelStats{}, fmt.Errorf("hitl: failed to query recent escalations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := Record{HotelID: hotelID}
		if err := rows.Scan(&rec.ConversationID, &rec.Score, pq.Array(&rec.Reasons), &rec.Method, &rec.Success, &rec.Timestamp); err != nil {
			return HotelStats{}, fmt.Errorf("hitl: failed to scan escalation row: %w", err)
		}
		stats.Recent = append(stats.Recent, rec)
	}
	if err := rows.Err(); err != nil {
		return HotelStats{}, fmt.Errorf("hitl: failed to read escalation rows: %w", err)
	}
	return stats, nil
}

func (l *PostgresLog) GlobalStats(ctx context.Context) (GlobalStats, error) {
	stats := GlobalStats{PerHotel: make(map[string]int)}

	rows, err := l.db.QueryContext(ctx,
		`SELECT hotel_id, COUNT(*) FROM escalations GROUP BY hotel_id`,
	)
	if err != nil {
		return GlobalStats{}, fmt.Errorf("hitl: failed to query global escalation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hotelID string
		var count int
		if err := rows.Scan(&hotelID, &count); err != nil {
			return GlobalStats{}, fmt.Errorf("hitl: failed to scan stats row: %w", err)
		}
		stats.PerHotel[hotelID] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return GlobalStats{}, fmt.Errorf("hitl: failed to read stats rows: %w", err)
	}
	stats.Hotels = len(stats.PerHotel)
	return stats, nil
}
