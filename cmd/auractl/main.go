// auractl drives AuraFlow workflows from the command line: it walks a
// workflow against a running broker, automating each target page in a
// headless browser instead of a user's tabs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	app "github.com/auraflow/auraflow"
	"github.com/auraflow/auraflow/internal/client"
	"github.com/auraflow/auraflow/internal/config"
	"github.com/auraflow/auraflow/pkg/log"
)

var (
	brokerURL string
	logLevel  string
)

func main() {
	root := &cobra.Command{
		Use:     "auractl",
		Short:   "Drive AuraFlow workflows from the command line",
		Version: app.Version,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging()
		},
	}

	root.PersistentFlags().StringVar(
		&brokerURL, "broker",
		fmt.Sprintf("http://localhost:%d", config.DefaultAPIPort),
		"broker base URL",
	)
	root.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level",
	)

	root.AddCommand(newRunCommand())
	root.AddCommand(newHealthCommand())
	root.AddCommand(newWorkflowsCommand())
	root.AddCommand(newSessionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	level, ok := levels[logLevel]
	if !ok {
		level = slog.LevelWarn
	}
	logger := log.NewWithWriter(
		"auractl", os.Getenv("ENV"), app.Version, level, os.Stderr,
	)
	slog.SetDefault(logger)
}

func newClient() *client.HTTPClient {
	return client.NewHTTPClient(brokerURL, 30*time.Second)
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check broker health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := newClient().Health(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%s %s: %s, %d live sessions\n",
				health.Service, health.Version,
				health.Status, health.Sessions)
			return nil
		},
	}
}

func newWorkflowsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List stored workflows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			digests, err := newClient().ListWorkflows(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range digests {
				cmd.Printf("%-24s %-32s %3d nodes  %s\n",
					d.ID, d.Name, d.NodeCount,
					d.LastModified.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newSessionCommand() *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Inspect and complete handoff sessions",
	}

	session.AddCommand(&cobra.Command{
		Use:   "get <session-id>",
		Short: "Fetch a session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newClient().GetSession(
				cmd.Context(), sessionID(args[0]),
			)
			if err != nil {
				return err
			}
			cmd.Printf("session %s\n  status: %s\n  prompt: %s\n",
				sess.ID, sess.Status, sess.Prompt)
			if sess.Result != "" {
				cmd.Printf("  result: %s\n", sess.Result)
			}
			return nil
		},
	})

	session.AddCommand(&cobra.Command{
		Use:   "status <session-id>",
		Short: "Poll a session's completion state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := newClient().SessionStatus(
				cmd.Context(), sessionID(args[0]),
			)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s\n", status.SessionID, status.Status)
			return nil
		},
	})

	var result string
	complete := &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Report a result for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newClient().CompleteSession(
				cmd.Context(), sessionID(args[0]), result,
			)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s\n", sess.ID, sess.Status)
			return nil
		},
	}
	complete.Flags().StringVar(
		&result, "result", "", "captured result text",
	)
	_ = complete.MarkFlagRequired("result")
	session.AddCommand(complete)

	return session
}
