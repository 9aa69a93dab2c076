package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

type createAdminOptions struct {
	displayName string
	password    string
}

// newCreateAdminCommand crea el primer administrador. Sin --password la contraseña se lee
// de la primera línea de la entrada estándar.
func newCreateAdminCommand(opts *RootOptions, open Opener) *cobra.Command {
	ca := &createAdminOptions{}
	cmd := &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Crea un usuario administrador",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ca.password
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errPasswordRequired
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errPasswordRequired
			}
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				if b.Auth == nil {
					return wrapUnavailable("create-admin")
				}
				user, err := b.Auth.CreateAdmin(ctx, args[0], password, ca.displayName)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(out, user)
				}
				printf(out, "admin creado: %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ca.displayName, "display-name", "", "nombre visible (por defecto el username)")
	cmd.Flags().StringVar(&ca.password, "password", "", "contraseña (mínimo 8 caracteres); vacío lee stdin")
	return cmd
}

var errPasswordRequired = errors.New("create-admin: contraseña requerida (--password o stdin)")
