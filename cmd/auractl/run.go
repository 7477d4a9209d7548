package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/auraflow/auraflow/internal/agent"
	"github.com/auraflow/auraflow/internal/client"
	"github.com/auraflow/auraflow/internal/config"
	"github.com/auraflow/auraflow/internal/controller"
	"github.com/auraflow/auraflow/internal/schedule"
	"github.com/auraflow/auraflow/pkg/api"
	"github.com/auraflow/auraflow/pkg/log"
)

var ErrRunTimeout = errors.New("workflow run timed out")

func newRunCommand() *cobra.Command {
	var (
		headless bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Run a workflow headlessly against its target pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(
				cmd.Context(), timeout,
			)
			defer cancel()
			return runWorkflow(
				ctx, cmd, api.WorkflowID(args[0]), headless,
			)
		},
	}

	cmd.Flags().BoolVar(
		&headless, "headless", true, "run the browser headlessly",
	)
	cmd.Flags().DurationVar(
		&timeout, "timeout", 15*time.Minute,
		"overall run timeout",
	)
	return cmd
}

func runWorkflow(
	ctx context.Context, cmd *cobra.Command, id api.WorkflowID,
	headless bool,
) error {
	cl := newClient()
	cfg := config.NewDefaultConfig()

	wf, err := cl.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}

	browser, err := agent.Launch(ctx, headless)
	if err != nil {
		return err
	}
	defer func() { _ = browser.Close() }()

	scheduler := schedule.NewSystem()
	go scheduler.Run(ctx)

	// Each dispatched page lands here for the agent to drive
	dispatched := make(chan string, 16)
	ctrl := controller.New(
		cl, scheduler,
		func(target string) error {
			dispatched <- target
			return nil
		},
		cfg.AutoAdvanceDelay,
	)
	// Headless runs have no desktop clipboard to speak of
	ctrl.SetClipboard(func(string) error { return nil })

	if err := ctrl.Start(ctx, wf); err != nil {
		return err
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrRunTimeout, id)

		case target := <-dispatched:
			if err := runStep(
				ctx, cmd, cl, browser, cfg, target,
			); err != nil {
				ctrl.Stop(ctx)
				return err
			}
			if err := ctrl.Continue(ctx); err != nil {
				return err
			}

		case <-ticker.C:
			snap := ctrl.Snapshot()
			if snap.State == controller.RunCompleted {
				cmd.Printf("workflow %s completed: %d steps\n",
					id, len(snap.History))
				return nil
			}
		}
	}
}

// runStep opens one dispatched page and lets the agent run the full
// handoff against it
func runStep(
	ctx context.Context, cmd *cobra.Command, cl *client.HTTPClient,
	browser *agent.Browser, cfg *config.Config, target string,
) error {
	sessionID, ok := fragmentSessionID(target)
	if !ok {
		return fmt.Errorf("no session fragment in %q", target)
	}

	slog.Info("Driving page",
		slog.String("url", target), log.SessionID(sessionID))

	page, err := browser.OpenPage(target)
	if err != nil {
		return err
	}

	eng := agent.New(page, cl, agent.Options{
		PollInterval:     cfg.PollInterval,
		PollMaxAttempts:  cfg.PollMaxAttempts,
		PollGuardTimeout: cfg.PollGuardTimeout,
		SubmitDelay:      cfg.SubmitDelay,
	})
	eng.SetClipboardReader(func() (string, error) {
		return "", nil
	})

	result, err := eng.RunAuto(ctx, sessionID)
	if err != nil {
		return err
	}
	cmd.Printf("%s: %s\n", sessionID, truncate(result, 120))
	return nil
}

func fragmentSessionID(target string) (api.SessionID, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	id, ok := strings.CutPrefix(u.Fragment, "session=")
	if !ok || id == "" {
		return "", false
	}
	return api.SessionID(id), true
}

func sessionID(raw string) api.SessionID {
	return api.SessionID(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
