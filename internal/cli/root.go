package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Clinica-api/internal/application/auth"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
)

// Backend dependencias que los comandos necesitan. Los campos nil indican
// capacidades no disponibles con la configuración actual.
type Backend struct {
	Auth          *auth.AuthUseCase
	Catalog       *pharmacy.CatalogUseCase
	Alerts        *pharmacy.AlertUseCase
	Migrate       func(ctx context.Context) ([]string, error)
	EnqueueAlerts func(ctx context.Context) (string, error)
	Close         func()
}

// Opener construye el backend al ejecutar un comando, no al parsear flags.
type Opener func(ctx context.Context) (*Backend, error)

// RootOptions flags globales.
type RootOptions struct {
	Format string // "text" | "json"
	Now    func() time.Time
}

// ValidFormats formatos de salida admitidos.
var ValidFormats = []string{"text", "json"}

var errUnavailable = errors.New("no disponible con la configuración actual")

// NewRootCommand crea el comando raíz de pharmacyctl. now nil usa time.Now.
func NewRootCommand(open Opener, now func() time.Time) *cobra.Command {
	if now == nil {
		now = time.Now
	}
	opts := &RootOptions{Now: now}

	cmd := &cobra.Command{
		Use:   "pharmacyctl",
		Short: "Administración de la farmacia de la clínica",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("formato inválido %q: debe ser uno de %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (json|text)")

	cmd.AddCommand(newMigrateCommand(opts, open))
	cmd.AddCommand(newImportCommand(opts, open))
	cmd.AddCommand(newExpiringCommand(opts, open))
	cmd.AddCommand(newScanAlertsCommand(opts, open))
	cmd.AddCommand(newCreateAdminCommand(opts, open))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withBackend abre el backend, ejecuta fn y lo cierra.
func withBackend(cmd *cobra.Command, open Opener, fn func(ctx context.Context, b *Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(ctx, b)
}

func wrapUnavailable(what string) error {
	return fmt.Errorf("%s: %w", what, errUnavailable)
}
