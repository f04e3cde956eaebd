package sweeper

import (
	"context"
	"receptionist/internal/reservations/service"
	"receptionist/pkg/clock"
	"receptionist/pkg/logger"
	"time"
)

// Sweeper periodically expires reservations whose holders never finished
// booking, returning their slots to open.
type Sweeper struct {
	manager  service.ReservationManager
	clock    clock.Clock
	interval time.Duration
	log      *logger.Logger
}

func New(manager service.ReservationManager, clk clock.Clock, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		clock:    clk,
		interval: interval,
		log:      log,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("Reservation sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.SweepOnce(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("Reservation sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int {
	start := time.Now()
	expired, err := s.manager.ExpireStale(ctx, s.clock.Now())
	if err != nil {
		s.log.Error("Reservation sweep failed", "expired", expired, "error", err)
		return expired
	}

	if expired > 0 {
		s.log.Info("Reservation sweep completed",
			"expired", expired,
			"duration", time.Since(start),
		)
	} else {
		s.log.Debug("Reservation sweep found nothing to expire")
	}
	return expired
}
