package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				if b.Migrate == nil {
					return errMigrateUnavailable
				}
				applied, err := b.Migrate(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					if applied == nil {
						applied = []string{}
					}
					return writeJSON(out, map[string]any{"applied": applied})
				}
				if len(applied) == 0 {
					printf(out, "Sin migraciones pendientes\n")
					return nil
				}
				for _, v := range applied {
					printf(out, "aplicada %s\n", v)
				}
				return nil
			})
		},
	}
}

var errMigrateUnavailable = wrapUnavailable("migrate requiere STORE_DRIVER=postgres")
