package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/auraflow/auraflow/internal/schedule"
	"github.com/auraflow/auraflow/pkg/api"
	"github.com/auraflow/auraflow/pkg/log"
)

type (
	// Store is the session broker's keyed store: an in-memory index for
	// fast lookup over a durable record per session. Writes update both
	// representations under one lock so they cannot diverge
	Store struct {
		durable DurableStore
		hub     *Hub
		now     schedule.Clock
		ttl     time.Duration

		mu       sync.RWMutex
		sessions map[api.SessionID]*api.Session
	}
)

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrLocalSession    = errors.New(
		"local session ids are never stored by the broker",
	)
)

// NewStore creates a session store over the provided durable backing
func NewStore(
	durable DurableStore, hub *Hub, now schedule.Clock,
	ttl time.Duration,
) *Store {
	return &Store{
		durable:  durable,
		hub:      hub,
		now:      now,
		ttl:      ttl,
		sessions: map[api.SessionID]*api.Session{},
	}
}

// Create mints a session id, stores the record in the memory index and
// the durable store, and announces it on the hub
func (s *Store) Create(
	ctx context.Context, req *api.CreateSessionRequest,
) (*api.Session, error) {
	if req.Prompt == "" {
		return nil, api.ErrSessionPromptEmpty
	}
	if req.Selectors == nil {
		return nil, api.ErrSessionSelectorsEmpty
	}

	sess := &api.Session{
		ID:         api.NewSessionID(),
		NodeID:     req.NodeID,
		ModuleID:   req.ModuleID,
		WorkflowID: req.WorkflowID,
		Prompt:     req.Prompt,
		Selectors:  *req.Selectors,
		TargetURL:  req.TargetURL,
		Status:     api.SessionPending,
		CreatedAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.durable.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("durable write failed: %w", err)
	}
	s.sessions[sess.ID] = sess

	s.publish(api.SessionEventCreated, sess)
	return copySession(sess), nil
}

// Get returns the session for an id. A memory miss reads through to the
// durable store and repopulates the index. Fetching flips a pending
// session to active, making "has been fetched" observable
func (s *Store) Get(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	if id.IsLocal() {
		return nil, ErrLocalSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status == api.SessionPending {
		sess.Status = api.SessionActive
		if err := s.durable.Put(ctx, sess); err != nil {
			slog.Warn("Failed to persist session activation",
				log.SessionID(id), log.Error(err))
		}
		s.publish(api.SessionEventActivated, sess)
	}
	return copySession(sess), nil
}

// Status returns the session without side effects. Polling a pending
// session never activates it
func (s *Store) Status(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	if id.IsLocal() {
		return nil, ErrLocalSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySession(sess), nil
}

// Complete stores the captured result. Idempotent: a second call
// overwrites the result and re-stamps the completion time
func (s *Store) Complete(
	ctx context.Context, id api.SessionID, result string,
) (*api.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.Status = api.SessionCompleted
	sess.Result = result
	sess.CompletedAt = s.now()

	if err := s.durable.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("durable write failed: %w", err)
	}

	s.publish(api.SessionEventCompleted, sess)
	return copySession(sess), nil
}

// Count returns the number of sessions held in the memory index
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions strictly older than the TTL from the memory
// index and the durable store. Entries younger than the TTL are never
// touched, so an in-flight Get or Complete cannot lose its record
func (s *Store) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0

	for id, sess := range s.sessions {
		if !sess.ExpiresAfter(s.ttl, now) {
			continue
		}
		if err := s.durable.Delete(ctx, id); err != nil {
			slog.Warn("Failed to delete expired session record",
				log.SessionID(id), log.Error(err))
			continue
		}
		delete(s.sessions, id)
		s.publish(api.SessionEventExpired, sess)
		evicted++
	}

	// Durable-only records (written before a restart) age out too
	ids, err := s.durable.List(ctx)
	if err != nil {
		return evicted, err
	}
	for _, id := range ids {
		if _, ok := s.sessions[id]; ok {
			continue
		}
		sess, err := s.durable.Get(ctx, id)
		if err != nil || !sess.ExpiresAfter(s.ttl, now) {
			continue
		}
		if err := s.durable.Delete(ctx, id); err != nil {
			continue
		}
		evicted++
	}

	return evicted, nil
}

// Close releases the durable backing
func (s *Store) Close() error {
	return s.durable.Close()
}

// lookup finds a live session in the index or read-through from the
// durable store. Callers hold the write lock
func (s *Store) lookup(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	if sess, ok := s.sessions[id]; ok {
		if sess.ExpiresAfter(s.ttl, s.now()) {
			return nil, ErrSessionNotFound
		}
		return sess, nil
	}

	sess, err := s.durable.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAfter(s.ttl, s.now()) {
		return nil, ErrSessionNotFound
	}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Store) publish(t api.SessionEventType, sess *api.Session) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(&api.SessionEvent{
		Type:      t,
		SessionID: sess.ID,
		NodeID:    sess.NodeID,
		Status:    sess.Status,
		At:        s.now(),
	})
}

func copySession(sess *api.Session) *api.Session {
	res := *sess
	return &res
}
