// Package offers holds the offer-status sweeper: a ticking loop that
// re-derives every offer's Draft/Published/Expired status from its date
// window, so published offers expire on schedule instead of at next read.
package offers

import (
	"context"
	"log/slog"
	"time"
)

// StatusStore is the slice of storage the sweeper needs.
type StatusStore interface {
	RefreshOfferStatuses(ctx context.Context, now time.Time) (int, error)
}

type Sweeper struct {
	store    StatusStore
	log      *slog.Logger
	interval time.Duration
}

const DefaultSweepInterval = time.Minute

func NewSweeper(store StatusStore, log *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, log: log, interval: interval}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) {
	changed, err := s.store.RefreshOfferStatuses(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("offer status sweep failed", "error", err)
		return
	}
	if changed > 0 {
		s.log.Info("offer statuses refreshed", "changed", changed)
	}
}
