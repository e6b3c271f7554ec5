package hitl

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLogAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO escalations").
		WithArgs(sqlmock.AnyArg(), "hotel-madrid", int64(42), 0.25, pq.Array([]string{"Uncertainty keywords: tal vez"}), "keyword", true, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	log := NewPostgresLog(db)
	err = log.Append(context.Background(), Record{
		ConversationID: 42,
		HotelID:        "hotel-madrid",
		Score:          0.25,
		Reasons:        []string{"Uncertainty keywords: tal vez"},
		Method:         "keyword",
		Timestamp:      ts,
		Success:        true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogHotelStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(AVG\\(score\\), 0\\) FROM escalations").
		WithArgs("hotel-madrid").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(2, 0.3))

	mock.ExpectQuery("SELECT conversation_id, score, reasons, method, success, created_at").
		WithArgs("hotel-madrid", recentStatsLimit).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id", "score", "reasons", "method", "success", "created_at"}).
			AddRow(int64(42), 0.25, pq.Array([]string{"r1"}), "keyword", true, ts).
			AddRow(int64(41), 0.35, pq.Array([]string{"r2"}), "hybrid", false, ts))

	log := NewPostgresLog(db)
	stats, err := log.HotelStats(context.Background(), "hotel-madrid")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.InDelta(t, 0.3, stats.AverageScore, 0.0001)
	require.Len(t, stats.Recent, 2)
	assert.Equal(t, int64(42), stats.Recent[0].ConversationID)
	assert.Equal(t, []string{"r1"}, stats.Recent[0].Reasons)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogHotelStatsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(AVG\\(score\\), 0\\) FROM escalations").
		WithArgs("hotel-lisboa").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(0, 0.0))

	log := NewPostgresLog(db)
	stats, err := log.HotelStats(context.Background(), "hotel-lisboa")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.Recent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogGlobalStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT hotel_id, COUNT\\(\\*\\) FROM escalations GROUP BY hotel_id").
		WillReturnRows(sqlmock.NewRows([]string{"hotel_id", "count"}).
			AddRow("hotel-madrid", 3).
			AddRow("hotel-lisboa", 1))

	log := NewPostgresLog(db)
	stats, err := log.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Hotels)
	assert.Equal(t, 3, stats.PerHotel["hotel-madrid"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS escalations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresLog(db).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
