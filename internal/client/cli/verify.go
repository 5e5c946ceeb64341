package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/client/ledger"
)

// NewVerifyCommand создает команду проверки цепочки.
// Нарушенная цепочка завершает процесс с кодом ExitFailure.
func NewVerifyCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	var signatures bool

	cmd := &cobra.Command{
		Use:          "verify",
		Short:        "Verify integrity of the hash chain",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				var opts []ledger.VerifyOption
				if signatures {
					opts = append(opts, ledger.WithSignatures())
				}

				result, err := app.Ledger.VerifyChain(cmd.Context(), opts...)
				if err != nil {
					return err
				}

				err = newFormatter(rootOpts, cmd).render(result, func(w io.Writer) {
					printVerifyResult(w, result)
				})
				if err != nil {
					return err
				}

				if !result.Valid {
					return &ExitError{
						Code:    ExitFailure,
						Message: fmt.Sprintf("audit chain is broken: %d issue(s)", len(result.Issues)),
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&signatures, "signatures", false, "also verify entry signatures")

	return cmd
}

func printVerifyResult(w io.Writer, result *ledger.VerifyResult) {
	if cp := result.Checkpoint; cp != nil {
		_, _ = fmt.Fprintf(w, "checkpoint: %d pruned, last %s\n", cp.PrunedCount, cp.LastPrunedTimestamp)
	}
	_, _ = fmt.Fprintf(w, "entries: %d\n", result.TotalEntries)

	if result.Valid {
		_, _ = fmt.Fprintln(w, "chain: valid")
		return
	}

	_, _ = fmt.Fprintln(w, "chain: BROKEN")
	for _, issue := range result.Issues {
		_, _ = fmt.Fprintf(w, "  [%d] %s %s: %s\n", issue.Index, issue.Kind, issue.ID, issue.Message)
		if issue.Expected != "" || issue.Actual != "" {
			_, _ = fmt.Fprintf(w, "      expected %s\n      actual   %s\n", issue.Expected, issue.Actual)
		}
	}
}
