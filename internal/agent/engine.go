package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/auraflow/auraflow/internal/client"
	"github.com/auraflow/auraflow/pkg/api"
	"github.com/auraflow/auraflow/pkg/log"
)

type (
	// Options tunes the agent's polling and pacing
	Options struct {
		PollInterval     time.Duration
		PollMaxAttempts  int
		PollGuardTimeout time.Duration
		SubmitDelay      time.Duration
	}

	// Engine runs the handoff phases against one page
	Engine struct {
		page     Page
		resolver *Resolver
		client   client.Client
		opts     Options

		readClipboard func() (string, error)
		sleep         func(context.Context, time.Duration) error

		mu         sync.Mutex
		cancelPoll context.CancelFunc
	}
)

// New creates an agent engine for a page
func New(page Page, cl client.Client, opts Options) *Engine {
	return &Engine{
		page:          page,
		resolver:      NewResolver(page),
		client:        cl,
		opts:          opts,
		readClipboard: clipboard.ReadAll,
		sleep:         sleepContext,
	}
}

// SetClipboardReader overrides the clipboard source for fallback
// sessions
func (e *Engine) SetClipboardReader(fn func() (string, error)) {
	e.readClipboard = fn
}

// SetSleep overrides the pacing function
func (e *Engine) SetSleep(
	fn func(context.Context, time.Duration) error,
) {
	e.sleep = fn
}

// RunAuto executes the full handoff for a session id: acquire, fill,
// submit, await the reply, capture it, report it. The first failing
// phase stops the chain
func (e *Engine) RunAuto(
	ctx context.Context, id api.SessionID,
) (string, error) {
	sess := e.Acquire(ctx, id)

	if err := e.Fill(sess); err != nil {
		return "", err
	}
	if err := e.sleep(ctx, e.opts.SubmitDelay); err != nil {
		return "", err
	}
	if err := e.Submit(sess); err != nil {
		return "", err
	}

	if !e.AwaitReply(ctx, sess) {
		slog.Warn("Reply wait timed out, capturing current state",
			log.SessionID(sess.ID))
	}

	result, err := e.Capture(sess)
	if err != nil {
		return "", err
	}

	e.Report(ctx, sess, result)
	return result, nil
}

// Acquire fetches the session record. Local ids and broker failures
// downgrade to a fallback session that drives the page with generic
// selectors and the clipboard's contents as the prompt
func (e *Engine) Acquire(
	ctx context.Context, id api.SessionID,
) *api.Session {
	if id.IsLocal() {
		return e.fallbackSession(id)
	}

	sess, err := e.client.GetSession(ctx, id)
	if err != nil {
		slog.Warn("Session fetch failed, falling back",
			log.SessionID(id), log.Error(err))
		return e.fallbackSession(id)
	}
	return sess
}

// Fill writes the prompt into the page's input element
func (e *Engine) Fill(sess *api.Session) error {
	el, ok := e.resolver.Input(sess.Selectors.Input)
	if !ok {
		return ErrNoInputFound
	}
	if err := el.SetValue(sess.Prompt); err != nil {
		return err
	}
	return el.DispatchInput()
}

// Submit activates the page's submit control
func (e *Engine) Submit(sess *api.Session) error {
	el, ok := e.resolver.Submit(sess.Selectors.Submit)
	if !ok {
		return ErrNoSubmitFound
	}
	return el.Click()
}

// AwaitReply polls until the page shows its reply-finished control,
// the session's copy selector or one of the generic fallbacks.
// Starting a new wait cancels any wait already in progress. Returns
// false when the attempt cap or the outer guard expires first
func (e *Engine) AwaitReply(
	ctx context.Context, sess *api.Session,
) bool {
	ctx, cancel := context.WithTimeout(ctx, e.opts.PollGuardTimeout)
	defer cancel()

	e.mu.Lock()
	if e.cancelPoll != nil {
		e.cancelPoll()
	}
	e.cancelPoll = cancel
	e.mu.Unlock()

	for attempt := 0; attempt < e.opts.PollMaxAttempts; attempt++ {
		if err := e.sleep(ctx, e.opts.PollInterval); err != nil {
			return false
		}
		if _, ok := e.resolver.Copy(sess.Selectors.Copy); ok {
			return true
		}
	}
	return false
}

// Capture reads the reply text from the page's result container. With
// no matching container it falls back to clicking the reply's copy
// control and reading the clipboard
func (e *Engine) Capture(sess *api.Session) (string, error) {
	el, ok := e.resolver.Result(sess.Selectors.Result)
	if !ok {
		return e.captureViaCopy(sess)
	}
	return el.Text()
}

func (e *Engine) captureViaCopy(sess *api.Session) (string, error) {
	el, ok := e.resolver.Copy(sess.Selectors.Copy)
	if !ok {
		return "", ErrNoResultFound
	}
	if err := el.Click(); err != nil {
		return "", err
	}
	text, err := e.readClipboard()
	if err != nil || text == "" {
		return "", ErrNoResultFound
	}
	return text, nil
}

// Report uploads the captured result. Local sessions have nothing to
// report to; upload failures are logged and swallowed so a flaky
// broker never aborts a finished step
func (e *Engine) Report(
	ctx context.Context, sess *api.Session, result string,
) {
	if sess.ID.IsLocal() {
		slog.Debug("Skipping result upload for local session",
			log.SessionID(sess.ID))
		return
	}
	if _, err := e.client.CompleteSession(
		ctx, sess.ID, result,
	); err != nil {
		slog.Warn("Result upload failed",
			log.SessionID(sess.ID), log.Error(err))
	}
}

func (e *Engine) fallbackSession(id api.SessionID) *api.Session {
	prompt, err := e.readClipboard()
	if err != nil {
		slog.Warn("Clipboard read failed for fallback session",
			log.SessionID(id), log.Error(err))
	}
	return &api.Session{
		ID:     id,
		Prompt: prompt,
		Status: api.SessionActive,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
