package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type (
	// NodeID is a unique identifier for a workflow node
	NodeID string

	// EdgeID is a unique identifier for a workflow edge
	EdgeID string

	// WorkflowID is a unique identifier for a workflow document
	WorkflowID string

	// ModuleID is a unique identifier for a module definition
	ModuleID string

	// SessionID is a unique identifier for a handoff session
	SessionID string
)

const (
	// SessionIDPrefix marks broker-minted session ids
	SessionIDPrefix = "sess_"

	// LocalSessionPrefix marks client-minted fallback session ids that
	// must never be looked up remotely
	LocalSessionPrefix = "local_"
)

// InvalidIDChars matches characters not permitted in workflow and module
// IDs. Valid characters are: letters, digits, underscore, dot, hyphen
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\- ]`)

// NewSessionID mints a broker session id
func NewSessionID() SessionID {
	return SessionID(SessionIDPrefix + uuid.NewString())
}

// NewLocalSessionID mints a client-side fallback session id, used when
// the broker cannot be reached
func NewLocalSessionID() SessionID {
	return SessionID(LocalSessionPrefix + uuid.NewString())
}

// IsLocal reports whether the session id was minted client-side
func (id SessionID) IsLocal() bool {
	return strings.HasPrefix(string(id), LocalSessionPrefix)
}

// SanitizeID lowercases an ID, removes invalid characters, replaces
// spaces with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
