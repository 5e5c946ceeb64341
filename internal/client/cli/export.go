package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/client/ledger"
)

// ExportOptions флаги команды export
type ExportOptions struct {
	Format string
	Output string
}

// NewExportCommand создает команду выгрузки журнала.
// Выгрузка сама фиксируется записью DATA_EXPORT.
func NewExportCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Export the audit ledger as JSON or CSV",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ledger.ParseExportFormat(opts.Format)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				w := cmd.OutOrStdout()
				toFile := opts.Output != "" && opts.Output != "-"
				if toFile {
					f, err := os.Create(opts.Output)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer func() {
						_ = f.Close()
					}()
					w = f
				}

				n, err := app.Ledger.Export(cmd.Context(), w, format)
				if err != nil {
					return err
				}

				if toFile {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "exported %d entries to %s\n", n, opts.Output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Format, "as", "json", "export format (json|csv)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
