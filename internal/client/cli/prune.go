package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
)

// NewPruneCommand создает команду удаления старых записей.
// Без --days используется client.retention.days_to_keep.
func NewPruneCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:          "prune",
		Short:        "Remove audit entries older than the retention period",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				keep := app.Config.Client.Retention.DaysToKeep
				if cmd.Flags().Changed("days") {
					keep = days
				}

				removed, err := app.Ledger.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}

				out := map[string]int{"removed": removed, "daysToKeep": keep}
				return newFormatter(rootOpts, cmd).render(out, func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "removed %d entries older than %d days\n", removed, keep)
				})
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days to keep (default from config)")

	return cmd
}
