package controller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraflow/auraflow/internal/client"
	"github.com/auraflow/auraflow/internal/controller"
	"github.com/auraflow/auraflow/internal/schedule"
	"github.com/auraflow/auraflow/pkg/api"
)

type fakeBroker struct {
	mu       sync.Mutex
	requests []*api.CreateSessionRequest
	fail     bool
}

func (f *fakeBroker) CreateSession(
	_ context.Context, req *api.CreateSessionRequest,
) (api.SessionID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", client.ErrBrokerUnavailable
	}
	f.requests = append(f.requests, req)
	return api.NewSessionID(), nil
}

func (f *fakeBroker) GetSession(
	context.Context, api.SessionID,
) (*api.Session, error) {
	return nil, client.ErrBrokerUnavailable
}

func (f *fakeBroker) CompleteSession(
	context.Context, api.SessionID, string,
) (*api.Session, error) {
	return nil, client.ErrBrokerUnavailable
}

func (f *fakeBroker) SessionStatus(
	context.Context, api.SessionID,
) (*api.SessionStatusResponse, error) {
	return nil, client.ErrBrokerUnavailable
}

func (f *fakeBroker) Health(
	context.Context,
) (*api.HealthResponse, error) {
	return &api.HealthResponse{Status: "ok"}, nil
}

func (f *fakeBroker) created() []*api.CreateSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*api.CreateSessionRequest(nil), f.requests...)
}

type fakeOpener struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeOpener) open(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

func (f *fakeOpener) opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func testController(
	t *testing.T, broker *fakeBroker, opener *fakeOpener,
) *controller.Controller {
	t.Helper()
	scheduler := schedule.NewSystem()
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	go scheduler.Run(ctx)

	r := controller.New(
		broker, scheduler, opener.open, 10*time.Millisecond,
	)
	r.SetClipboard(func(string) error { return nil })
	return r
}

func pipelineWorkflow() *api.Workflow {
	return &api.Workflow{
		ID:   "wf-pipeline",
		Name: "summarize then translate",
		Nodes: []*api.Node{
			{
				ID:   "start",
				Kind: api.NodeKindTrigger,
				SeedData: []api.SeedValue{
					{Key: "text", Value: "the raw article"},
				},
			},
			{
				ID:             "summarize",
				Kind:           api.NodeKindApp,
				PromptTemplate: "Summarize: {{text}}",
				TargetURL:      "https://chatgpt.com/",
				Selectors:      &api.SelectorSet{Input: "#in"},
			},
			{
				ID:             "translate",
				Kind:           api.NodeKindApp,
				PromptTemplate: "Translate {{input}}",
				TargetURL:      "https://gemini.google.com/app",
			},
		},
		Edges: []*api.Edge{
			{ID: "e1", Source: "start", Target: "summarize"},
			{ID: "e2", Source: "summarize", Target: "translate"},
		},
	}
}

func TestStartEmptyWorkflow(t *testing.T) {
	r := testController(t, &fakeBroker{}, &fakeOpener{})

	err := r.Start(t.Context(), &api.Workflow{ID: "empty"})
	assert.ErrorIs(t, err, controller.ErrNoNodes)
}

func TestTriggerAutoAdvances(t *testing.T) {
	broker := &fakeBroker{}
	opener := &fakeOpener{}
	r := testController(t, broker, opener)

	require.NoError(t, r.Start(t.Context(), pipelineWorkflow()))

	snap := r.Snapshot()
	assert.Equal(t, controller.RunRunning, snap.State)
	assert.Equal(t, api.NodeID("start"), snap.Active)

	// The trigger advances to the first app node on its own
	assert.Eventually(t, func() bool {
		return len(broker.created()) == 1
	}, time.Second, 10*time.Millisecond)

	created := broker.created()[0]
	assert.Equal(t, api.NodeID("summarize"), created.NodeID)
	assert.Equal(t, "Summarize: the raw article", created.Prompt)
	assert.Equal(t, api.WorkflowID("wf-pipeline"), created.WorkflowID)

	urls := opener.opened()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "https://chatgpt.com/#session=sess_")
}

func TestContinueToCompletion(t *testing.T) {
	broker := &fakeBroker{}
	opener := &fakeOpener{}
	r := testController(t, broker, opener)
	ctx := t.Context()

	require.NoError(t, r.Start(ctx, pipelineWorkflow()))
	assert.Eventually(t, func() bool {
		return len(broker.created()) == 1
	}, time.Second, 10*time.Millisecond)

	// Completing the summarize step advances to translate
	require.NoError(t, r.Continue(ctx))
	created := broker.created()
	require.Len(t, created, 2)
	assert.Equal(t, api.NodeID("translate"), created[1].NodeID)

	// {{input}} resolves only against a direct upstream trigger;
	// translate's upstream is an app node
	assert.Equal(t, "Translate {{input}}", created[1].Prompt)

	// No outgoing edge left, the run completes
	require.NoError(t, r.Continue(ctx))
	snap := r.Snapshot()
	assert.Equal(t, controller.RunCompleted, snap.State)
	assert.Empty(t, snap.Active)
	assert.Equal(t,
		[]api.NodeID{"start", "summarize", "translate"}, snap.History)

	assert.ErrorIs(t, r.Continue(ctx), controller.ErrNotRunning)
}

func TestInputPlaceholderUsesFirstSeed(t *testing.T) {
	broker := &fakeBroker{}
	r := testController(t, broker, &fakeOpener{})

	wf := pipelineWorkflow()
	wf.Nodes[1].PromptTemplate = "Summarize {{input}} briefly"
	require.NoError(t, r.Start(t.Context(), wf))

	assert.Eventually(t, func() bool {
		return len(broker.created()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Summarize the raw article briefly",
		broker.created()[0].Prompt)
}

func TestBrokerFailureFallsBackToLocalSession(t *testing.T) {
	broker := &fakeBroker{fail: true}
	opener := &fakeOpener{}
	r := testController(t, broker, opener)

	require.NoError(t, r.Start(t.Context(), pipelineWorkflow()))

	assert.Eventually(t, func() bool {
		return len(opener.opened()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, opener.opened()[0],
		"https://chatgpt.com/#session=local_")

	snap := r.Snapshot()
	assert.True(t, snap.Sessions["summarize"].IsLocal())
}

func TestBadTargetURL(t *testing.T) {
	r := testController(t, &fakeBroker{}, &fakeOpener{})

	wf := &api.Workflow{
		ID: "wf-bad",
		Nodes: []*api.Node{
			{
				ID:        "only",
				Kind:      api.NodeKindApp,
				TargetURL: "not a url",
			},
		},
	}
	err := r.Start(t.Context(), wf)
	assert.ErrorIs(t, err, controller.ErrBadTargetURL)
}

func TestClipboardFailureIsNotFatal(t *testing.T) {
	broker := &fakeBroker{}
	r := testController(t, broker, &fakeOpener{})
	r.SetClipboard(func(string) error { return assert.AnError })

	require.NoError(t, r.Start(t.Context(), pipelineWorkflow()))
	assert.Eventually(t, func() bool {
		return len(broker.created()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	r := testController(t, &fakeBroker{}, &fakeOpener{})
	ctx := t.Context()

	require.NoError(t, r.Start(ctx, pipelineWorkflow()))
	r.Stop(ctx)
	r.Stop(ctx)

	snap := r.Snapshot()
	assert.Equal(t, controller.RunIdle, snap.State)
	assert.Empty(t, snap.Active)
	assert.Empty(t, snap.History)
}

func TestSecondStartReplacesRun(t *testing.T) {
	broker := &fakeBroker{}
	r := testController(t, broker, &fakeOpener{})
	ctx := t.Context()

	wf := pipelineWorkflow()
	require.NoError(t, r.Start(ctx, wf))
	require.NoError(t, r.Start(ctx, wf))

	snap := r.Snapshot()
	assert.Equal(t, controller.RunRunning, snap.State)
	assert.Equal(t, []api.NodeID{"start"}, snap.History)

	// Only the new run's auto-advance dispatches
	assert.Eventually(t, func() bool {
		return len(broker.created()) == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, broker.created(), 1)
}
