package hitl

import (
	"context"
	"sync"
	"time"
)

// recentStatsLimit bounds how many records per-hotel stats return.
const recentStatsLimit = 10

// Record is one escalation attempt kept for analytics. Failed attempts
// are recorded too so operators can see escalations that never reached
// the platform.
type Record struct {
	ConversationID int64     `json:"conversation_id"`
	HotelID        string    `json:"hotel_id"`
	Score          float64   `json:"score"`
	Reasons        []string  `json:"reasons"`
	Method         string    `json:"method"`
	Timestamp      time.Time `json:"timestamp"`
	Success        bool      `json:"success"`
}

// HotelStats summarizes escalations for one hotel.
type HotelStats struct {
	HotelID      string   `json:"hotel_id"`
	Total        int      `json:"total_escalations"`
	AverageScore float64  `json:"average_confidence"`
	Recent       []Record `json:"recent_escalations"`
}

// GlobalStats summarizes escalations across all hotels.
type GlobalStats struct {
	Total    int            `json:"total_escalations"`
	Hotels   int            `json:"hotels_with_escalations"`
	PerHotel map[string]int `json:"escalations_per_hotel"`
}

// Log is a per-hotel append-only record of escalation attempts.
type Log interface {
	Append(ctx context.Context, rec Record) error
	HotelStats(ctx context.Context, hotelID string) (HotelStats, error)
	GlobalStats(ctx context.Context) (GlobalStats, error)
}

// MemoryLog keeps escalation records in process memory. Suitable for
// single-instance deployments and tests; use PostgresLog when records
// must survive restarts.
type MemoryLog struct {
	mu      sync.Mutex
	byHotel map[string][]Record
}

// NewMemoryLog creates an empty in-memory escalation log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{byHotel: make(map[string][]Record)}
}

func (l *MemoryLog) Append(_ context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byHotel[rec.HotelID] = append(l.byHotel[rec.HotelID], rec)
	return nil
}

func (l *MemoryLog) HotelStats(_ context.Context, hotelID string) (HotelStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.byHotel[hotelID]
	stats := HotelStats{HotelID: hotelID}
	stats.Total = len(records)
	if len(records) == 0 {
		return stats, nil
	}

	var sum float64
	for _, rec := range records {
		sum += rec.Score
	}
	stats.AverageScore = sum / float64(len(records))

	start := len(records) - recentStatsLimit
	if start < 0 {
		start = 0
	}
	stats.Recent = append([]Record(nil), records[start:]...)
	return stats, nil
}

func (l *MemoryLog) GlobalStats(_ context.Context) (GlobalStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := GlobalStats{PerHotel: make(map[string]int)}
	for hotelID, records := range l.byHotel {
		if len(records) == 0 {
			continue
		}
		stats.PerHotel[hotelID] = len(records)
		stats.Total += len(records)
	}
	stats.Hotels = len(stats.PerHotel)
	return stats, nil
}
