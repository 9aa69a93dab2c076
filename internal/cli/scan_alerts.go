package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newScanAlertsCommand(opts *RootOptions, open Opener) *cobra.Command {
	var enqueue bool
	cmd := &cobra.Command{
		Use:   "scan-alerts",
		Short: "Publica las alertas de stock bajo y vencimiento",
		Long: `Ejecuta el escaneo de alertas en el proceso actual, o con --enqueue
lo encola para el worker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				out := cmd.OutOrStdout()
				if enqueue {
					if b.EnqueueAlerts == nil {
						return errEnqueueUnavailable
					}
					id, err := b.EnqueueAlerts(ctx)
					if err != nil {
						return err
					}
					if opts.Format == "json" {
						return writeJSON(out, map[string]string{"task_id": id})
					}
					printf(out, "tarea encolada %s\n", id)
					return nil
				}
				low, expiry, err := b.Alerts.ScanAndPublish(ctx, opts.Now())
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(out, map[string]int{"low_stock": low, "expiry": expiry})
				}
				printf(out, "stock bajo: %d, vencimientos: %d\n", low, expiry)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "encolar en el worker en vez de ejecutar aquí")
	return cmd
}

var errEnqueueUnavailable = wrapUnavailable("--enqueue requiere REDIS_ADDR")
