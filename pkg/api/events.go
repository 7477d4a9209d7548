package api

import "time"

type (
	// SessionEventType identifies a session lifecycle transition
	SessionEventType string

	// SessionEvent is broadcast to WebSocket subscribers whenever a
	// session changes state
	SessionEvent struct {
		Type      SessionEventType `json:"type"`
		SessionID SessionID        `json:"session_id"`
		NodeID    NodeID           `json:"node_id,omitempty"`
		Status    SessionStatus    `json:"status,omitempty"`
		At        time.Time        `json:"at"`
	}
)

const (
	SessionEventCreated   SessionEventType = "session.created"
	SessionEventActivated SessionEventType = "session.activated"
	SessionEventCompleted SessionEventType = "session.completed"
	SessionEventExpired   SessionEventType = "session.expired"
)
