package api

import "time"

type (
	// CreateSessionRequest contains parameters for creating a handoff
	// session
	CreateSessionRequest struct {
		NodeID     NodeID       `json:"node_id"`
		ModuleID   ModuleID     `json:"module_id,omitempty"`
		WorkflowID WorkflowID   `json:"workflow_id,omitempty"`
		Prompt     string       `json:"prompt"`
		Selectors  *SelectorSet `json:"selectors"`
		TargetURL  string       `json:"target_url"`
	}

	// CreateSessionResponse is returned when session creation succeeds
	CreateSessionResponse struct {
		Success   bool      `json:"success"`
		SessionID SessionID `json:"session_id"`
		Message   string    `json:"message,omitempty"`
	}

	// SessionResponse wraps a fetched session record
	SessionResponse struct {
		Success bool     `json:"success"`
		Session *Session `json:"session"`
	}

	// SessionStatusResponse reports the poll-visible state of a session
	SessionStatusResponse struct {
		SessionID   SessionID     `json:"session_id"`
		Status      SessionStatus `json:"status"`
		Result      string        `json:"result,omitempty"`
		CompletedAt time.Time     `json:"completed_at,omitzero"`
	}

	// CompleteSessionRequest carries the captured reply text
	CompleteSessionRequest struct {
		Result string `json:"result"`
	}

	// WorkflowDigest provides summary information about a workflow
	WorkflowDigest struct {
		ID           WorkflowID `json:"id"`
		Name         string     `json:"name"`
		NodeCount    int        `json:"node_count"`
		LastModified time.Time  `json:"last_modified"`
	}

	// WorkflowsListResponse contains a list of workflow summaries
	WorkflowsListResponse struct {
		Workflows []*WorkflowDigest `json:"workflows"`
		Count     int               `json:"count"`
	}

	// WorkflowSavedResponse is returned when a workflow save succeeds
	WorkflowSavedResponse struct {
		Workflow *Workflow `json:"workflow"`
		Message  string    `json:"message"`
	}

	// ModulesListResponse contains all registered modules
	ModulesListResponse struct {
		Modules []*Module `json:"modules"`
		Count   int       `json:"count"`
	}

	// ModuleSavedResponse is returned when a module save succeeds
	ModuleSavedResponse struct {
		Module  *Module `json:"module"`
		Message string  `json:"message"`
	}

	// HealthResponse provides service health information, including the
	// number of live sessions held by the broker
	HealthResponse struct {
		Service   string    `json:"service"`
		Version   string    `json:"version"`
		Status    string    `json:"status"`
		Sessions  int       `json:"sessions"`
		Timestamp time.Time `json:"timestamp"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
