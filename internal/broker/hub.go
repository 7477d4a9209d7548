package broker

import (
	"sync"

	"github.com/auraflow/auraflow/pkg/api"
)

type (
	// Hub fans session lifecycle events out to subscribers. Slow
	// subscribers drop events rather than block the broker
	Hub struct {
		mu   sync.Mutex
		subs map[chan *api.SessionEvent]struct{}
	}
)

const subscriberBuffer = 16

// NewHub creates an empty event hub
func NewHub() *Hub {
	return &Hub{
		subs: map[chan *api.SessionEvent]struct{}{},
	}
}

// Subscribe registers a new event channel
func (h *Hub) Subscribe() chan *api.SessionEvent {
	ch := make(chan *api.SessionEvent, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes an event channel
func (h *Hub) Unsubscribe(ch chan *api.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish delivers an event to every subscriber without blocking
func (h *Hub) Publish(ev *api.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unsubscribes every remaining channel
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
