// Package cli команды клиента точки сбора.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
)

// RootOptions глобальные флаги всех команд
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
	Verbose    bool
}

// ValidFormats допустимые форматы вывода
var ValidFormats = []string{"text", "json"}

// NewRootCommand создает корневую команду milkledger.
// in используется для запроса секрета подписи и подтверждений.
func NewRootCommand(version string, in iocli.IO) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "milkledger",
		Short:   "Tamper-evident audit trail of a dairy collection point",
		Long:    "Local hash-chained audit ledger with an offline-first sync queue.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to milkledger.yaml")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewLogCommand(opts, in))
	cmd.AddCommand(NewEntriesCommand(opts, in))
	cmd.AddCommand(NewVerifyCommand(opts, in))
	cmd.AddCommand(NewExportCommand(opts, in))
	cmd.AddCommand(NewPruneCommand(opts, in))
	cmd.AddCommand(NewSyncCommand(opts, in))
	cmd.AddCommand(NewRunCommand(opts, in))
	cmd.AddCommand(NewStatusCommand(opts, in))
	cmd.AddCommand(NewQueueCommand(opts, in))

	return cmd
}
