package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/attachments/internal/lifecycle"
)

type eventFunc func(ctx context.Context, ev *lifecycle.EventContext) error

// idCommand builds a command that runs one lifecycle handler on a reference id.
func idCommand(a *app, use, short string, handler func(*lifecycle.Coordinator) eventFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.scoped(cmd.Context())
			coord, err := a.coordinator(ctx)
			if err != nil {
				return err
			}
			return handler(coord)(ctx, &lifecycle.EventContext{DocumentID: args[0]})
		},
	}
}
