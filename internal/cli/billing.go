package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/netcollect/backend/internal/bootstrap"
	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEnsureCommand(rt *runtime) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the missing invoices of a period for every active customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(app *bootstrap.App) error {
				p, err := periodOrCurrent(app, period)
				if err != nil {
					return err
				}
				created, err := app.Ledger.EnsurePeriod(cmd.Context(), p)
				if err != nil {
					return err
				}
				rt.log.Info("period ensured", zap.String("period", p.String()), zap.Int64("created", created))
				fmt.Fprintf(cmd.OutOrStdout(), "period=%s created=%d\n", p, created)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Billing period YYYY-MM (default: current month)")
	return cmd
}

func newSyncCommand(rt *runtime) *cobra.Command {
	var namesFile string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the customer roster from a list of active names",
		Long: `Reads one customer name per line. Listed names become active, unknown
names are created with the default address and fee, and every other
customer is deactivated. Existing invoices are never touched.`,
		Example: `  netcollect sync --names-file active.txt
  router-export | netcollect sync --names-file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			source := "cli:stdin"
			if namesFile != "-" {
				f, err := os.Open(namesFile)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
				source = "cli:" + namesFile
			}
			names, err := readNames(in)
			if err != nil {
				return err
			}

			return rt.withApp(cmd.Context(), func(app *bootstrap.App) error {
				res, err := app.Roster.Sync(cmd.Context(), names, source)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&namesFile, "names-file", "", `File with one active name per line, or "-" for stdin`)
	_ = cmd.MarkFlagRequired("names-file")
	return cmd
}

func newApproveCommand(rt *runtime) *cobra.Command {
	var (
		period  string
		batchID int64
		admin   string
	)

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a pending cash batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(app *bootstrap.App) error {
				batch, err := app.Batches.Approve(cmd.Context(), batchID, billing.Period(period), admin)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), batch)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Billing period YYYY-MM of the batch")
	cmd.Flags().Int64Var(&batchID, "batch", 0, "Cash batch id")
	cmd.Flags().StringVar(&admin, "admin", "", "Name recorded as the approver")
	_ = cmd.MarkFlagRequired("period")
	_ = cmd.MarkFlagRequired("batch")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func newExportCommand(rt *runtime) *cobra.Command {
	var (
		period string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a period workbook (.xlsx)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(app *bootstrap.App) error {
				p, err := periodOrCurrent(app, period)
				if err != nil {
					return err
				}
				data, err := app.Reports.PeriodExport(cmd.Context(), p)
				if err != nil {
					return err
				}

				path := out
				if path == "" {
					path = export.FileName(p)
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := export.WritePeriodWorkbook(f, data, app.Location); err != nil {
					_ = f.Close()
					_ = os.Remove(path)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Billing period YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: netcollect-<period>.xlsx)")
	return cmd
}

// periodOrCurrent parses s, or returns the current month in the billing zone
func periodOrCurrent(app *bootstrap.App, s string) (billing.Period, error) {
	if s == "" {
		return billing.PeriodOf(time.Now().In(app.Location)), nil
	}
	return billing.ParsePeriod(s)
}

// readNames returns the non-blank lines of r, trimmed
func readNames(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("no names given")
	}
	return names, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
