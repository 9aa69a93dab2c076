package cli

import (
	"context"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
)

func newExpiringCommand(opts *RootOptions, open Opener) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "Lista lotes con stock vencidos o que vencen en los próximos N días",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				alerts, err := b.Alerts.ExpiringWithin(ctx, opts.Now(), days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					if alerts == nil {
						alerts = []dto.ExpiryAlert{}
					}
					return writeJSON(out, alerts)
				}
				if len(alerts) == 0 {
					printf(out, "Ningún lote vence en los próximos %d días\n", days)
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				printf(tw, "NIVEL\tDÍAS\tVENCE\tLOTE\tMEDICAMENTO\tCANTIDAD\n")
				for _, a := range alerts {
					printf(tw, "%s\t%d\t%s\t%s\t%s\t%d\n",
						a.Level, a.DaysUntilExpiry, a.ExpiryDate.Format("2006-01-02"), a.BatchNumber, a.MedicineName, a.CurrentQuantity)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "ventana en días")
	return cmd
}
