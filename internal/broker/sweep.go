package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/auraflow/auraflow/internal/schedule"
)

// Sweeper drives the store's TTL eviction on a fixed interval through
// the shared scheduler, so shutdown cancels it like any other task
type Sweeper struct {
	store     *Store
	scheduler *schedule.Scheduler
	interval  time.Duration
	cancel    context.CancelFunc
}

const sweepTaskKey = "broker/sweep"

// NewSweeper creates a sweeper for the provided store
func NewSweeper(
	store *Store, scheduler *schedule.Scheduler, interval time.Duration,
) *Sweeper {
	return &Sweeper{
		store:     store,
		scheduler: scheduler,
		interval:  interval,
	}
}

// Start schedules the first sweep. Each sweep reschedules the next
func (sw *Sweeper) Start(ctx context.Context) {
	ctx, sw.cancel = context.WithCancel(ctx)
	sw.schedule(ctx)
}

// Stop cancels any pending sweep
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.scheduler.Cancel(context.Background(), sweepTaskKey)
}

func (sw *Sweeper) schedule(ctx context.Context) {
	sw.scheduler.Schedule(ctx, sweepTaskKey, sw.interval, func() error {
		if ctx.Err() != nil {
			return nil
		}
		evicted, err := sw.store.Sweep(ctx)
		if err != nil {
			return err
		}
		if evicted > 0 {
			slog.Info("Expired sessions evicted",
				slog.Int("count", evicted))
		}
		sw.schedule(ctx)
		return nil
	})
}
