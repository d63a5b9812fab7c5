// Package worker holds background jobs of the booking server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredPurger deletes pending bookings whose confirmation token ran out.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, limit int) (int, error)
}

// ExpirySweeper periodically purges expired pending bookings so abandoned
// requests do not accumulate between confirmation attempts.
type ExpirySweeper struct {
	purger   ExpiredPurger
	interval time.Duration
	batch    int
	log      *zap.Logger
}

// NewExpirySweeper returns a sweeper running every interval and removing at
// most batch bookings per run (0 means no limit).
func NewExpirySweeper(purger ExpiredPurger, interval time.Duration, batch int, log *zap.Logger) *ExpirySweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpirySweeper{purger: purger, interval: interval, batch: batch, log: log}
}

// Start blocks until ctx is done.  It sweeps once immediately and then on
// every tick.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("expiry sweeper disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started", zap.Duration("interval", s.interval), zap.Int("batch", s.batch))
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *ExpirySweeper) tick(ctx context.Context) {
	n, err := s.purger.PurgeExpired(ctx, s.batch)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("purge expired bookings", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.log.Info("purged expired bookings", zap.Int("count", n))
	}
}
