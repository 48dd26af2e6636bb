package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandonbloom/cliharness/internal/workspace"
)

func newResetCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Empty the scratch workspace and print its path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load()
			if err != nil {
				return err
			}
			ec, err := newContext(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ws := workspace.New(workspace.WithLogger(logger), workspace.WithLockTimeout(cfg.LockTimeout()))
			path, err := ws.PrepareClean(ctx, ec, cfg.Workspace.BaseDir, cfg.Workspace.Name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
