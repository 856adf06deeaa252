package cli

import (
	"errors"

	"github.com/netcollect/backend/internal/infrastructure/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand(rt *runtime) *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for a collector or admin",
		Long: `Signs an access token with auth.secret. Hand it to the collector's or
admin's client; it is sent as "Authorization: Bearer <token>".`,
		Example: `  netcollect token --subject Ali --role collector`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.Auth.Secret == "" {
				return errors.New("auth.secret is not configured")
			}
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			tok, err := auth.NewJWTService(rt.cfg.Auth).Issue(subject, r)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tok)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Collector or admin name")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleCollector), "collector or admin")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
