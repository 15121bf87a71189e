package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/content"
	"github.com/fruitsalade/attachments/internal/journal/postgres"
	"github.com/fruitsalade/attachments/internal/lifecycle"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
)

func newBackendCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Show which storage backend the bindings select",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kind:    %s\n", a.sel.Kind)
			if a.sel.Binding.Name != "" {
				fmt.Fprintf(out, "binding: %s (%s)\n", a.sel.Binding.Name, a.sel.Binding.Label)
			}
			if a.sel.Warning != "" {
				fmt.Fprintf(out, "warning: %s\n", a.sel.Warning)
			}
			return nil
		},
	}
}

func newUploadCommand(a *app) *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Store a file and print its reference id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.scoped(cmd.Context())
			coord, err := a.coordinator(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(args[0])
			mt, r, err := content.Sniff(f, name, mimeType)
			if err != nil {
				return err
			}
			ev := &lifecycle.EventContext{FileName: name, MimeType: mt, Content: r}
			if err := coord.OnCreate(ctx, ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", ev.DocumentID, ev.MimeType, ev.Size)
			return nil
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "media type (detected when empty)")
	return cmd
}

func newReadCommand(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "read DOCUMENT_ID",
		Short: "Write stored content to stdout",
		Long:  "Write stored content to stdout. The status gate applies: pass --status Clean for scanned content.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.scoped(cmd.Context())
			coord, err := a.coordinator(ctx)
			if err != nil {
				return err
			}
			stream, err := coord.OnRead(ctx, &lifecycle.EventContext{
				DocumentID: args[0],
				Status:     attachment.ParseStatus(status),
			})
			if err != nil {
				return err
			}
			if stream == nil {
				return attachment.ErrNotFound
			}
			defer stream.Close()
			_, err = io.Copy(cmd.OutOrStdout(), stream)
			return err
		},
	}
	cmd.Flags().StringVar(&status, "status", string(attachment.StatusUnscanned), "scan status of the attachment")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return idCommand(a, "delete DOCUMENT_ID", "Mark content deleted", func(c *lifecycle.Coordinator) eventFunc {
		return c.OnMarkDeleted
	})
}

func newRestoreCommand(a *app) *cobra.Command {
	return idCommand(a, "restore DOCUMENT_ID", "Restore deleted content", func(c *lifecycle.Coordinator) eventFunc {
		return c.OnRestore
	})
}

func newPurgeCommand(a *app) *cobra.Command {
	return idCommand(a, "purge DOCUMENT_ID", "Remove content permanently", func(c *lifecycle.Coordinator) eventFunc {
		return c.OnPurge
	})
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the upload journal table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.journal()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate(cmd.Context())
		},
	}
}

func newSweepCommand(a *app) *cobra.Command {
	var (
		maxAge time.Duration
		apply  bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete journaled uploads whose transaction never finished",
		Long: "Lists uploads pending longer than --max-age. With --delete they are removed " +
			"from storage. Only use --delete when the host confirmed none of them is referenced.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.journal()
			if err != nil {
				return err
			}
			defer store.Close()

			if maxAge <= 0 {
				maxAge = a.cfg.OrphanMaxAge
			}
			if !apply {
				pending, err := store.Expired(ctx, time.Now().Add(-maxAge))
				if err != nil {
					return err
				}
				for _, p := range pending {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Tenant, p.DocumentID, p.CreatedAt.Format(time.RFC3339))
				}
				return nil
			}

			coord, err := a.coordinator(ctx, lifecycle.WithJournal(store))
			if err != nil {
				return err
			}
			n, err := coord.RecoverOrphans(ctx, maxAge, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swept %d uploads\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "minimum age of pending uploads (default ORPHAN_MAX_AGE)")
	cmd.Flags().BoolVar(&apply, "delete", false, "delete the listed uploads")
	return cmd
}

func newServeMetricsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-metrics",
		Short: "Select the backend and serve Prometheus metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.open(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              a.cfg.MetricsAddr,
				Handler:           metrics.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logging.Info("metrics server listening", zap.String("addr", a.cfg.MetricsAddr))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logging.Info("shutting down metrics server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func (a *app) journal() (*postgres.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return postgres.New(a.cfg.DatabaseURL)
}
