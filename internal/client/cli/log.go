package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/models"
)

// LogOptions флаги команды log
type LogOptions struct {
	Data  string
	Notes string
	Actor string
}

// NewLogCommand создает команду добавления записи в журнал
func NewLogCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	opts := &LogOptions{}

	cmd := &cobra.Command{
		Use:   "log <action> <entity-type> <entity-id>",
		Short: "Append an entry to the audit ledger",
		Long: `Append an entry to the hash chain and queue it for sync.

ACTION is an upper snake case verb such as SALE_CREATE or MILK_INTAKE.
--data takes a JSON object with event details.`,
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseData(opts.Data)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				if opts.Actor != "" {
					app.Ledger.SetActor(opts.Actor)
				}

				entry, err := app.Ledger.Log(cmd.Context(), models.Action(args[0]), args[1], args[2], data, opts.Notes)
				if err != nil {
					return err
				}

				return newFormatter(rootOpts, cmd).render(entry, func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "logged %s %s\n", entry.ID, entry.Action)
					_, _ = fmt.Fprintf(w, "hash: %s\n", entry.Hash)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "event details as a JSON object")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form note")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "operator id recorded as userId")

	return cmd
}

// parseData разбирает JSON объект; числа сохраняют исходную запись
func parseData(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("--data must be a JSON object: %w", err)
	}
	return data, nil
}
