// Package cli is the netcollect command tree: the HTTP server, schema
// migrations and the operator commands that run without it.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/netcollect/backend/internal/bootstrap"
	"github.com/netcollect/backend/internal/infrastructure/config"
	"github.com/netcollect/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime is what PersistentPreRunE prepares for every subcommand
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	logLevel string
}

// NewRootCommand builds the netcollect command tree
func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "netcollect",
		Short: "Monthly billing collection and cash reconciliation",
		Long: `netcollect tracks one invoice per active customer per month, lets field
collectors mark them paid in cash or by transfer, and lets an admin verify
each collector's daily cash batch.

Configuration comes from config.toml and NETCOLLECT_* environment variables.`,
		Version:       bootstrap.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.log != nil {
				_ = logger.Sync(rt.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newEnsureCommand(rt),
		newSyncCommand(rt),
		newApproveCommand(rt),
		newExportCommand(rt),
		newTokenCommand(rt),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (rt *runtime) load() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if rt.logLevel != "" {
		cfg.Log.Level = rt.logLevel
	}
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt.cfg = cfg
	rt.log = log
	return nil
}

// withApp runs fn against a fully wired App and closes it afterwards
func (rt *runtime) withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := bootstrap.New(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			rt.log.Warn("shutdown was not clean", zap.Error(err))
		}
	}()
	return fn(app)
}
