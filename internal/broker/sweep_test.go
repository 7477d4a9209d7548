package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraflow/auraflow/internal/broker"
	"github.com/auraflow/auraflow/internal/schedule"
)

type firingTimer struct {
	ch chan time.Time
}

func (t *firingTimer) Channel() <-chan time.Time { return t.ch }
func (t *firingTimer) Reset(time.Duration) bool  { return true }
func (t *firingTimer) Stop() bool                { return true }

func TestSweeperEvictsOnInterval(t *testing.T) {
	clock := newFakeClock()
	store := broker.NewStore(
		testDurable(t), nil, clock.Now, time.Hour,
	)
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.Create(t.Context(), testRequest())
	require.NoError(t, err)

	timer := &firingTimer{ch: make(chan time.Time)}
	scheduler := schedule.New(
		clock.Now,
		func(time.Duration) schedule.Timer { return timer },
	)
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	go scheduler.Run(ctx)

	sweeper := broker.NewSweeper(store, scheduler, 5*time.Minute)
	sweeper.Start(ctx)
	t.Cleanup(sweeper.Stop)

	// First sweep: nothing old enough yet
	timer.ch <- clock.Now()
	assert.Eventually(t, func() bool {
		return store.Count() == 1
	}, time.Second, 10*time.Millisecond)

	// Sweeps keep rescheduling; once the session ages out it goes
	clock.Advance(2 * time.Hour)
	timer.ch <- clock.Now()
	assert.Eventually(t, func() bool {
		return store.Count() == 0
	}, time.Second, 10*time.Millisecond)
}
