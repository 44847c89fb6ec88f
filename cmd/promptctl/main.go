package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-manager/internal/config"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
	"github.com/alanyang/prompt-manager/internal/wire"
)

// opener builds the prompt service a command runs against and returns its cleanup.
type opener func(ctx context.Context) (*promptsvc.Service, func(), error)

func main() {
	root, closeStore := newRootCmd(openFromConfig)
	err := root.Execute()
	closeStore()
	if err != nil {
		os.Exit(1)
	}
}

// openFromConfig wires the same storage stack the server uses. Logs go to
// stderr so command output stays pipeable.
func openFromConfig(ctx context.Context) (*promptsvc.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr))

	st, err := wire.BuildStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := startService(ctx, st.Store)
	return svc, func() {
		svc.Close()
		st.Close()
	}, nil
}

// startService loads the collection. A failed first load is logged and the
// service is still returned: it records the failure in LastError, and commands
// like backend must keep working when the store is misconfigured.
func startService(ctx context.Context, store portprompt.Store) *promptsvc.Service {
	svc := promptsvc.NewService(store, promptsvc.Options{})
	if err := svc.Start(ctx); err != nil {
		slog.Warn("initial prompt load failed", "backend", store.Backend(), "error", err)
	}
	return svc
}

// cli carries what every subcommand needs once the root has opened the service.
type cli struct {
	open    opener
	svc     *promptsvc.Service
	cleanup func()
}

// newRootCmd returns the command tree and a func that releases whatever the
// command opened. The release func is safe to call when nothing was opened.
func newRootCmd(open opener) (*cobra.Command, func()) {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "promptctl",
		Short: "Manage saved prompts from the terminal",
		Long: `promptctl reads and edits the same prompt collection the server serves.

Storage is selected from PROMPTS_REMOTE_URL / PROMPTS_REMOTE_KEY exactly as the
server does: the remote table when both are set, otherwise the local store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open prompt store: %w", err)
			}
			c.svc, c.cleanup = svc, cleanup
			return nil
		},
	}

	root.AddCommand(
		c.listCmd(),
		c.addCmd(),
		c.editCmd(),
		c.rmCmd(),
		c.copyCmd(),
		c.exportCmd(),
		c.backendCmd(),
	)
	return root, func() {
		if c.cleanup != nil {
			c.cleanup()
			c.cleanup = nil
		}
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
