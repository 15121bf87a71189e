// attachctl operates the attachment content store.
//
// It selects the storage backend from the credential bindings the same way
// the service does, and can upload, read, delete and restore content, sweep
// orphaned uploads from the journal, and serve Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/config"
	"github.com/fruitsalade/attachments/internal/lifecycle"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/storage"
)

type app struct {
	cfg      *config.Config
	tenant   string
	logLevel string

	backend storage.Backend
	sel     storage.Selection
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "attachctl",
		Short:         "Operate the attachment content store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.tenant, "tenant", "", "tenant to operate on (default tenant when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newBackendCommand(a),
		newUploadCommand(a),
		newReadCommand(a),
		newDeleteCommand(a),
		newRestoreCommand(a),
		newPurgeCommand(a),
		newMigrateCommand(a),
		newSweepCommand(a),
		newServeMetricsCommand(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: "stderr"}); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if a.logLevel != "" {
		if err := logging.SetLevel(a.logLevel); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	return nil
}

func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logging.Warn("closing storage backend", zap.Error(err))
		}
	}
	_ = logging.Sync()
}

// scoped scopes ctx to the selected tenant.
func (a *app) scoped(ctx context.Context) context.Context {
	if a.tenant == "" {
		return ctx
	}
	return logging.WithTenant(ctx, a.tenant)
}

// open selects the storage backend once per invocation.
func (a *app) open(ctx context.Context) (storage.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	bindings, err := a.cfg.Bindings()
	if err != nil {
		return nil, fmt.Errorf("load bindings: %w", err)
	}
	a.backend, a.sel = storage.Open(ctx, bindings)
	return a.backend, nil
}

func (a *app) coordinator(ctx context.Context, opts ...lifecycle.Option) (*lifecycle.Coordinator, error) {
	backend, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	return lifecycle.NewCoordinator(backend, opts...), nil
}
