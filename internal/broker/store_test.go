package broker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraflow/auraflow/internal/broker"
	"github.com/auraflow/auraflow/pkg/api"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testDurable(t *testing.T) *broker.BlobStore {
	t.Helper()
	durable, err := broker.OpenBlobStore(
		t.Context(), "mem://", "sessions/",
	)
	require.NoError(t, err)
	return durable
}

func testStore(t *testing.T) (*broker.Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := broker.NewStore(
		testDurable(t), broker.NewHub(), clock.Now, time.Hour,
	)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func testRequest() *api.CreateSessionRequest {
	return &api.CreateSessionRequest{
		NodeID: "n2",
		Prompt: "Summarize this",
		Selectors: &api.SelectorSet{
			Input:  "#prompt-textarea",
			Submit: "button[type=\"submit\"]",
		},
		TargetURL: "https://chatgpt.com/",
	}
}

func TestCreateSession(t *testing.T) {
	store, clock := testStore(t)

	sess, err := store.Create(t.Context(), testRequest())
	require.NoError(t, err)

	assert.True(t, len(sess.ID) > len(api.SessionIDPrefix))
	assert.False(t, sess.ID.IsLocal())
	assert.Equal(t, api.SessionPending, sess.Status)
	assert.Equal(t, clock.Now(), sess.CreatedAt)
	assert.Equal(t, 1, store.Count())
}

func TestCreateValidation(t *testing.T) {
	store, _ := testStore(t)
	ctx := t.Context()

	req := testRequest()
	req.Prompt = ""
	_, err := store.Create(ctx, req)
	assert.ErrorIs(t, err, api.ErrSessionPromptEmpty)

	req = testRequest()
	req.Selectors = nil
	_, err = store.Create(ctx, req)
	assert.ErrorIs(t, err, api.ErrSessionSelectorsEmpty)

	assert.Zero(t, store.Count())
}

func TestGetActivatesPending(t *testing.T) {
	store, _ := testStore(t)
	ctx := t.Context()

	sess, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, api.SessionActive, got.Status)

	// Second fetch stays active
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, api.SessionActive, got.Status)
}

func TestStatusDoesNotActivate(t *testing.T) {
	store, _ := testStore(t)
	ctx := t.Context()

	sess, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	got, err := store.Status(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, api.SessionPending, got.Status)

	got, err = store.Status(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, api.SessionPending, got.Status)
}

func TestGetRejectsLocalIDs(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Get(t.Context(), api.NewLocalSessionID())
	assert.ErrorIs(t, err, broker.ErrLocalSession)
}

func TestGetUnknownSession(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Get(t.Context(), "sess_nope")
	assert.ErrorIs(t, err, broker.ErrSessionNotFound)
}

func TestCompleteIsIdempotent(t *testing.T) {
	store, clock := testStore(t)
	ctx := t.Context()

	sess, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	first, err := store.Complete(ctx, sess.ID, "the summary")
	require.NoError(t, err)
	assert.Equal(t, api.SessionCompleted, first.Status)
	assert.Equal(t, "the summary", first.Result)
	assert.Equal(t, clock.Now(), first.CompletedAt)

	clock.Advance(time.Minute)
	second, err := store.Complete(ctx, sess.ID, "revised summary")
	require.NoError(t, err)
	assert.Equal(t, "revised summary", second.Result)
	assert.True(t, second.CompletedAt.After(first.CompletedAt))
}

func TestReadThroughAfterRestart(t *testing.T) {
	clock := newFakeClock()
	durable := testDurable(t)
	ctx := t.Context()

	store := broker.NewStore(durable, nil, clock.Now, time.Hour)
	sess, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	// A fresh store over the same durable backing simulates a restart
	revived := broker.NewStore(durable, nil, clock.Now, time.Hour)
	assert.Zero(t, revived.Count())

	got, err := revived.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Prompt, got.Prompt)
	assert.Equal(t, 1, revived.Count())
}

func TestSweepEvictsExpiredOnly(t *testing.T) {
	store, clock := testStore(t)
	ctx := t.Context()

	old, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Minute)
	young, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	evicted, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Count())

	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, broker.ErrSessionNotFound)

	got, err := store.Get(ctx, young.ID)
	require.NoError(t, err)
	assert.Equal(t, young.ID, got.ID)
}

func TestSweepReapsDurableOnlyRecords(t *testing.T) {
	clock := newFakeClock()
	durable := testDurable(t)
	ctx := t.Context()

	orphaned := broker.NewStore(durable, nil, clock.Now, time.Hour)
	_, err := orphaned.Create(ctx, testRequest())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	revived := broker.NewStore(durable, nil, clock.Now, time.Hour)

	evicted, err := revived.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	ids, err := durable.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestExpiredSessionNotServed(t *testing.T) {
	store, clock := testStore(t)
	ctx := t.Context()

	sess, err := store.Create(ctx, testRequest())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, broker.ErrSessionNotFound)
}

func TestHubReceivesLifecycleEvents(t *testing.T) {
	hub := broker.NewHub()
	clock := newFakeClock()
	store := broker.NewStore(testDurable(t), hub, clock.Now, time.Hour)
	ctx := t.Context()

	events := hub.Subscribe()
	t.Cleanup(func() { hub.Unsubscribe(events) })

	sess, err := store.Create(ctx, testRequest())
	require.NoError(t, err)
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	_, err = store.Complete(ctx, sess.ID, "done")
	require.NoError(t, err)

	types := []api.SessionEventType{
		api.SessionEventCreated,
		api.SessionEventActivated,
		api.SessionEventCompleted,
	}
	for _, want := range types {
		ev := <-events
		assert.Equal(t, want, ev.Type)
		assert.Equal(t, sess.ID, ev.SessionID)
	}
}
