// Package controller walks a workflow graph one node at a time,
// handing each app step off to its target page through the session
// broker.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/auraflow/auraflow/internal/client"
	"github.com/auraflow/auraflow/internal/schedule"
	"github.com/auraflow/auraflow/pkg/api"
	"github.com/auraflow/auraflow/pkg/log"
)

type (
	// RunState tracks a workflow run through its lifecycle
	RunState string

	// Opener opens a target page URL, usually in a browser tab
	Opener func(url string) error

	// ClipboardFunc places text on the system clipboard
	ClipboardFunc func(text string) error

	// Controller drives one workflow run at a time. Starting a new run
	// replaces the previous one
	Controller struct {
		client       client.Client
		scheduler    *schedule.Scheduler
		open         Opener
		clipboard    ClipboardFunc
		advanceDelay time.Duration

		mu       sync.Mutex
		workflow *api.Workflow
		state    RunState
		active   api.NodeID
		history  []api.NodeID
		sessions map[api.NodeID]api.SessionID
		runSeq   int
	}

	// Snapshot is a point-in-time view of the current run
	Snapshot struct {
		State    RunState                     `json:"state"`
		Active   api.NodeID                   `json:"active,omitempty"`
		History  []api.NodeID                 `json:"history"`
		Sessions map[api.NodeID]api.SessionID `json:"sessions"`
	}
)

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
)

var (
	ErrNoNodes      = errors.New("workflow has no nodes")
	ErrNotRunning   = errors.New("no run in progress")
	ErrBadTargetURL = errors.New("node target URL unparseable")
)

// New creates a controller that dispatches through the provided broker
// client and opens pages with the provided opener
func New(
	cl client.Client, scheduler *schedule.Scheduler, open Opener,
	advanceDelay time.Duration,
) *Controller {
	return &Controller{
		client:       cl,
		scheduler:    scheduler,
		open:         open,
		clipboard:    clipboard.WriteAll,
		advanceDelay: advanceDelay,
		state:        RunIdle,
	}
}

// SetClipboard overrides the clipboard writer
func (r *Controller) SetClipboard(fn ClipboardFunc) {
	r.clipboard = fn
}

// Start begins a run at the workflow's start node, replacing any run
// already in progress
func (r *Controller) Start(
	ctx context.Context, wf *api.Workflow,
) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	start, ok := wf.StartNode()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoNodes, wf.ID)
	}

	r.mu.Lock()
	r.cancelAdvances(ctx)
	r.runSeq++
	r.workflow = wf
	r.state = RunRunning
	r.active = start.ID
	r.history = []api.NodeID{start.ID}
	r.sessions = map[api.NodeID]api.SessionID{}
	seq := r.runSeq
	r.mu.Unlock()

	slog.Info("Workflow run started",
		log.WorkflowID(wf.ID), log.NodeID(start.ID))

	if start.Kind == api.NodeKindTrigger {
		r.scheduleAdvance(ctx, seq)
		return nil
	}
	return r.dispatch(ctx, start)
}

// Continue advances the run across the active node's outgoing edge.
// With no outgoing edge the run completes
func (r *Controller) Continue(ctx context.Context) error {
	r.mu.Lock()
	if r.state != RunRunning {
		r.mu.Unlock()
		return ErrNotRunning
	}

	edge, ok := r.workflow.OutgoingEdge(r.active)
	if !ok {
		r.state = RunCompleted
		r.active = ""
		wfID := r.workflow.ID
		r.mu.Unlock()
		slog.Info("Workflow run completed", log.WorkflowID(wfID))
		return nil
	}

	next, found := r.workflow.FindNode(edge.Target)
	if !found {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", api.ErrEdgeNodeMissing, edge.Target)
	}
	r.active = next.ID
	r.history = append(r.history, next.ID)
	seq := r.runSeq
	r.mu.Unlock()

	slog.Info("Advanced to node", log.NodeID(next.ID))

	if next.Kind == api.NodeKindTrigger {
		r.scheduleAdvance(ctx, seq)
		return nil
	}
	return r.dispatch(ctx, next)
}

// Stop abandons the run in progress, clearing its history. Safe to
// call in any state. Idempotent
func (r *Controller) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelAdvances(ctx)
	r.state = RunIdle
	r.active = ""
	r.history = nil
}

// Snapshot reports the current run state
func (r *Controller) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append([]api.NodeID(nil), r.history...)
	sessions := make(map[api.NodeID]api.SessionID, len(r.sessions))
	for k, v := range r.sessions {
		sessions[k] = v
	}
	return &Snapshot{
		State:    r.state,
		Active:   r.active,
		History:  history,
		Sessions: sessions,
	}
}

// dispatch hands an app node off to its target page: resolve the
// prompt, register a session, and open the page with the session id in
// the URL fragment. A broker failure downgrades to a local session so
// the page still opens with its prompt on the clipboard
func (r *Controller) dispatch(
	ctx context.Context, node *api.Node,
) error {
	prompt := r.resolvePrompt(node)

	if err := r.clipboard(prompt); err != nil {
		slog.Warn("Clipboard write failed",
			log.NodeID(node.ID), log.Error(err))
	}

	r.mu.Lock()
	wfID := r.workflow.ID
	r.mu.Unlock()

	sessionID, err := r.client.CreateSession(
		ctx, &api.CreateSessionRequest{
			NodeID:     node.ID,
			ModuleID:   node.ModuleID,
			WorkflowID: wfID,
			Prompt:     prompt,
			Selectors:  ptr(node.SelectorSetOrEmpty()),
			TargetURL:  node.TargetURL,
		},
	)
	if err != nil {
		sessionID = api.NewLocalSessionID()
		slog.Warn("Broker unavailable, using local session",
			log.NodeID(node.ID),
			log.SessionID(sessionID),
			log.Error(err))
	}

	r.mu.Lock()
	r.sessions[node.ID] = sessionID
	r.mu.Unlock()

	target, err := sessionURL(node.TargetURL, sessionID)
	if err != nil {
		return err
	}
	if err := r.open(target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	slog.Info("Node dispatched",
		log.NodeID(node.ID), log.SessionID(sessionID))
	return nil
}

func (r *Controller) scheduleAdvance(ctx context.Context, seq int) {
	key := fmt.Sprintf("controller/run%d/advance", seq)
	r.scheduler.Schedule(ctx, key, r.advanceDelay, func() error {
		r.mu.Lock()
		stale := seq != r.runSeq || r.state != RunRunning
		r.mu.Unlock()
		if stale {
			return nil
		}
		return r.Continue(ctx)
	})
}

// cancelAdvances drops pending auto-advance tasks. Callers hold the
// lock
func (r *Controller) cancelAdvances(ctx context.Context) {
	r.scheduler.CancelPrefix(ctx, "controller/run")
}

// sessionURL appends the session handoff fragment to a node's target
// URL
func sessionURL(target string, id api.SessionID) (string, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("%w: %q", ErrBadTargetURL, target)
	}
	u.Fragment = "session=" + string(id)
	return u.String(), nil
}

func ptr[T any](v T) *T {
	return &v
}
