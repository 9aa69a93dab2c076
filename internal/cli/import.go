package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import-medicines <file.csv>",
		Short: "Importa el catálogo desde un CSV (sku,name,unit,category,price)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("abrir %s: %w", args[0], err)
			}
			defer f.Close()

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				summary, err := b.Catalog.ImportCSV(ctx, f)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(out, summary)
				}
				printf(out, "creados: %d, omitidos: %d, fallidos: %d\n", summary.Created, len(summary.Skipped), len(summary.Failed))
				for _, issue := range summary.Skipped {
					printf(out, "  línea %d omitida (%s): %s\n", issue.Line, issue.SKU, issue.Reason)
				}
				for _, issue := range summary.Failed {
					printf(out, "  línea %d fallida (%s): %s\n", issue.Line, issue.SKU, issue.Reason)
				}
				return nil
			})
		},
	}
}
