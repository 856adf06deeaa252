package cli

import (
	"fmt"
	"strconv"

	"github.com/netcollect/backend/internal/bootstrap"
	"github.com/netcollect/backend/internal/infrastructure/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "internal/infrastructure/migration/sql"

func newMigrateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the SQL migrations embedded in the binary.
The dialect follows database.driver.`,
	}

	withMigrator := func(fn func(*migration.Migrator) error) error {
		m, err := bootstrap.NewMigrator(&rt.cfg.Database, rt.log)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				rt.log.Warn("failed to close migrator", zap.Error(err))
			}
		}()
		return fn(m)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateUp(rt)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator((*migration.Migrator).Down)
		},
	}

	steps := &cobra.Command{
		Use:     "steps N",
		Short:   "Apply N migrations, or roll back -N",
		Example: "  netcollect migrate steps 1\n  netcollect migrate steps -- -1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migration.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (repairs a dirty schema)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return withMigrator(func(m *migration.Migrator) error { return m.Force(v) })
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the migrations embedded for the configured dialect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := migration.ListMigrations(migrationDialect(rt))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	var dir string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Write an empty up/down pair for every dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := migration.CreateMigration(dir, args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f.UpPath)
				fmt.Fprintln(cmd.OutOrStdout(), f.DownPath)
			}
			return nil
		},
	}
	create.Flags().StringVar(&dir, "dir", defaultMigrationsDir, "Root of the per-dialect migration directories")

	cmd.AddCommand(up, down, steps, version, force, list, create)
	return cmd
}

func migrateUp(rt *runtime) error {
	m, err := bootstrap.NewMigrator(&rt.cfg.Database, rt.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			rt.log.Warn("failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func migrationDialect(rt *runtime) string {
	if rt.cfg.Database.Driver == migration.DialectSQLite {
		return migration.DialectSQLite
	}
	return migration.DialectPostgres
}
