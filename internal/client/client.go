// Package client is the HTTP client the execution controller and the
// page-side agent use to talk to the session broker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/auraflow/auraflow/pkg/api"
	"github.com/auraflow/auraflow/pkg/log"
)

type (
	// Client is the broker interface consumed by the controller and
	// the agent
	Client interface {
		CreateSession(
			context.Context, *api.CreateSessionRequest,
		) (api.SessionID, error)
		GetSession(context.Context, api.SessionID) (*api.Session, error)
		CompleteSession(
			context.Context, api.SessionID, string,
		) (*api.Session, error)
		SessionStatus(
			context.Context, api.SessionID,
		) (*api.SessionStatusResponse, error)
		Health(context.Context) (*api.HealthResponse, error)
	}

	// HTTPClient talks to a broker over its REST API
	HTTPClient struct {
		httpClient *http.Client
		baseURL    string
	}
)

var (
	ErrBrokerUnavailable = errors.New("broker request failed")
	ErrLocalSession      = errors.New(
		"local session ids cannot be resolved remotely",
	)
)

var _ Client = (*HTTPClient)(nil)

const userAgent = "AuraFlow/1.0"

// NewHTTPClient creates a broker client for the given base URL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// CreateSession registers a handoff session with the broker and returns
// its minted id
func (c *HTTPClient) CreateSession(
	ctx context.Context, req *api.CreateSessionRequest,
) (api.SessionID, error) {
	var res api.CreateSessionResponse
	err := c.post(ctx, "/api/session/create", req, &res)
	if err != nil {
		return "", err
	}
	if !res.Success || res.SessionID == "" {
		return "", fmt.Errorf("%w: %s", ErrBrokerUnavailable, res.Message)
	}
	return res.SessionID, nil
}

// GetSession fetches a session record. Local ids are rejected before
// any network traffic
func (c *HTTPClient) GetSession(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	if id.IsLocal() {
		return nil, fmt.Errorf("%w: %s", ErrLocalSession, id)
	}

	var res api.SessionResponse
	err := c.get(ctx, "/api/session/"+string(id), &res)
	if err != nil {
		return nil, err
	}
	if res.Session == nil {
		return nil, fmt.Errorf("%w: empty session payload",
			ErrBrokerUnavailable)
	}
	return res.Session, nil
}

// CompleteSession reports the captured result for a session
func (c *HTTPClient) CompleteSession(
	ctx context.Context, id api.SessionID, result string,
) (*api.Session, error) {
	if id.IsLocal() {
		return nil, fmt.Errorf("%w: %s", ErrLocalSession, id)
	}

	var res api.SessionResponse
	err := c.post(ctx, "/api/session/"+string(id)+"/complete",
		&api.CompleteSessionRequest{Result: result}, &res)
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

// SessionStatus fetches the poll-visible state of a session
func (c *HTTPClient) SessionStatus(
	ctx context.Context, id api.SessionID,
) (*api.SessionStatusResponse, error) {
	if id.IsLocal() {
		return nil, fmt.Errorf("%w: %s", ErrLocalSession, id)
	}

	var res api.SessionStatusResponse
	err := c.get(ctx, "/api/session/"+string(id)+"/status", &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetWorkflow fetches a workflow document from the catalog
func (c *HTTPClient) GetWorkflow(
	ctx context.Context, id api.WorkflowID,
) (*api.Workflow, error) {
	var res api.Workflow
	err := c.get(ctx, "/api/workflows/"+string(id), &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListWorkflows fetches digests of every stored workflow
func (c *HTTPClient) ListWorkflows(
	ctx context.Context,
) ([]*api.WorkflowDigest, error) {
	var res api.WorkflowsListResponse
	if err := c.get(ctx, "/api/workflows", &res); err != nil {
		return nil, err
	}
	return res.Workflows, nil
}

// Health fetches broker health, including the live session count
func (c *HTTPClient) Health(
	ctx context.Context,
) (*api.HealthResponse, error) {
	var res api.HealthResponse
	if err := c.get(ctx, "/api/health", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) get(
	ctx context.Context, path string, out any,
) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+path, nil,
	)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(
	ctx context.Context, path string, in, out any,
) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Broker request failed",
			slog.String("url", req.URL.String()),
			slog.Duration("duration", time.Since(start)),
			log.Error(err))
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d: %s", ErrBrokerUnavailable,
			resp.StatusCode, errorMessage(respBody))
	}

	return json.Unmarshal(respBody, out)
}

// errorMessage extracts the error string from a failure body without
// assuming the broker sent well-formed JSON
func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		return msg.String()
	}
	const maxRaw = 200
	if len(body) > maxRaw {
		body = body[:maxRaw]
	}
	return string(body)
}
