package cli

import (
	"os/signal"
	"syscall"

	"github.com/netcollect/backend/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrateFirst {
				if err := migrateUp(rt); err != nil {
					return err
				}
			}

			rt.log.Info("Starting netcollect",
				zap.String("app", rt.cfg.App.Name),
				zap.String("env", rt.cfg.App.Env),
				zap.String("port", rt.cfg.App.Port),
				zap.String("database", rt.cfg.Database.Driver),
			)
			return rt.withApp(ctx, func(app *bootstrap.App) error {
				return app.Serve(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	return cmd
}
