package api

import (
	"errors"
	"time"
)

type (
	// SessionStatus tracks a session through its handoff lifecycle
	SessionStatus string

	// Session is the short-lived record passing one step's resolved
	// prompt and selectors from the controller to the page-side agent
	Session struct {
		ID          SessionID     `json:"id"`
		NodeID      NodeID        `json:"node_id"`
		ModuleID    ModuleID      `json:"module_id,omitempty"`
		WorkflowID  WorkflowID    `json:"workflow_id,omitempty"`
		Prompt      string        `json:"prompt"`
		Selectors   SelectorSet   `json:"selectors"`
		TargetURL   string        `json:"target_url"`
		Status      SessionStatus `json:"status"`
		Result      string        `json:"result,omitempty"`
		CreatedAt   time.Time     `json:"created_at"`
		CompletedAt time.Time     `json:"completed_at,omitzero"`
	}
)

const (
	// SessionPending means the session was created but never fetched
	SessionPending SessionStatus = "pending"

	// SessionActive means the page-side agent fetched the session at
	// least once
	SessionActive SessionStatus = "active"

	// SessionCompleted means a result was reported
	SessionCompleted SessionStatus = "completed"
)

var (
	ErrSessionPromptEmpty    = errors.New("session prompt required")
	ErrSessionSelectorsEmpty = errors.New("session selectors required")
)

// ExpiresAfter reports whether the session is older than the TTL at the
// given instant
func (s *Session) ExpiresAfter(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) > ttl
}
