package session

import (
	"context"
	"time"

	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

// Sweeper periodically evicts sessions whose last activity is older
// than the configured max age.
type Sweeper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	logger   *logging.Logger
}

// NewSweeper creates an inactivity sweeper. A non-positive maxAge
// defaults to 24h, a non-positive interval to one hour.
func NewSweeper(store Store, maxAge, interval time.Duration, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := s.store.ExpireInactive(sweepCtx, s.maxAge)
	if err != nil {
		s.logger.Warn("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("expired inactive sessions", "count", removed, "max_age", s.maxAge.String())
	}
}
