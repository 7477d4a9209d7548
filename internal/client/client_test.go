package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraflow/auraflow/internal/client"
	"github.com/auraflow/auraflow/pkg/api"
)

func testServer(
	t *testing.T, handler http.HandlerFunc,
) *client.HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return client.NewHTTPClient(server.URL, 5*time.Second)
}

func TestCreateSession(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/session/create", r.URL.Path)
		assert.Equal(t, "application/json",
			r.Header.Get("Content-Type"))

		var req api.CreateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Summarize this", req.Prompt)

		_ = json.NewEncoder(w).Encode(api.CreateSessionResponse{
			Success:   true,
			SessionID: "sess_abc",
		})
	})

	id, err := cl.CreateSession(t.Context(), &api.CreateSessionRequest{
		NodeID:    "n2",
		Prompt:    "Summarize this",
		Selectors: &api.SelectorSet{Input: "#in"},
	})
	require.NoError(t, err)
	assert.Equal(t, api.SessionID("sess_abc"), id)
}

func TestCreateSessionFailureFlag(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.CreateSessionResponse{
			Success: false,
			Message: "store full",
		})
	})

	_, err := cl.CreateSession(
		t.Context(), &api.CreateSessionRequest{},
	)
	require.ErrorIs(t, err, client.ErrBrokerUnavailable)
	assert.Contains(t, err.Error(), "store full")
}

func TestGetSession(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session/sess_abc", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.SessionResponse{
			Success: true,
			Session: &api.Session{
				ID:     "sess_abc",
				Prompt: "Summarize this",
				Status: api.SessionActive,
			},
		})
	})

	sess, err := cl.GetSession(t.Context(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, api.SessionActive, sess.Status)
}

func TestGetSessionRejectsLocalIDs(t *testing.T) {
	called := false
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := cl.GetSession(t.Context(), "local_123")
	assert.ErrorIs(t, err, client.ErrLocalSession)
	assert.False(t, called)
}

func TestGetSessionHTTPError(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error:  "session not found or expired",
			Status: http.StatusNotFound,
		})
	})

	_, err := cl.GetSession(t.Context(), "sess_gone")
	require.ErrorIs(t, err, client.ErrBrokerUnavailable)
	assert.Contains(t, err.Error(), "session not found or expired")
}

func TestErrorBodyNotJSON(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := cl.Health(t.Context())
	require.ErrorIs(t, err, client.ErrBrokerUnavailable)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestCompleteSession(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"/api/session/sess_abc/complete", r.URL.Path)

		var req api.CompleteSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the summary", req.Result)

		_ = json.NewEncoder(w).Encode(api.SessionResponse{
			Success: true,
			Session: &api.Session{
				ID:     "sess_abc",
				Status: api.SessionCompleted,
				Result: req.Result,
			},
		})
	})

	sess, err := cl.CompleteSession(
		t.Context(), "sess_abc", "the summary",
	)
	require.NoError(t, err)
	assert.Equal(t, api.SessionCompleted, sess.Status)
}

func TestSessionStatus(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session/sess_abc/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.SessionStatusResponse{
			SessionID: "sess_abc",
			Status:    api.SessionCompleted,
			Result:    "done",
		})
	})

	status, err := cl.SessionStatus(t.Context(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, api.SessionCompleted, status.Status)
	assert.Equal(t, "done", status.Result)
}

func TestHealth(t *testing.T) {
	cl := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.HealthResponse{
			Service:  "auraflow",
			Status:   "ok",
			Sessions: 3,
		})
	})

	health, err := cl.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, health.Sessions)
}

func TestConnectionRefused(t *testing.T) {
	cl := client.NewHTTPClient(
		"http://127.0.0.1:1", 500*time.Millisecond,
	)
	_, err := cl.Health(t.Context())
	assert.ErrorIs(t, err, client.ErrBrokerUnavailable)
}
