package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/models"
)

// NewQueueCommand создает группу команд обслуживания очереди синхронизации
func NewQueueCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the sync queue",
	}

	cmd.AddCommand(newQueueListCommand(rootOpts, in))
	cmd.AddCommand(newQueueAddCommand(rootOpts, in))
	cmd.AddCommand(newQueueRequeueCommand(rootOpts, in))
	cmd.AddCommand(newQueuePurgeCommand(rootOpts, in))
	cmd.AddCommand(newQueueClearCommand(rootOpts, in))

	return cmd
}

func newQueueListCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List queue items",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				items, err := app.Queue.All(cmd.Context())
				if err != nil {
					return err
				}

				if status != "" {
					filtered := make([]*models.SyncQueueItem, 0, len(items))
					for _, it := range items {
						if string(it.Status) == status {
							filtered = append(filtered, it)
						}
					}
					items = filtered
				}

				return newFormatter(rootOpts, cmd).render(items, func(w io.Writer) {
					printQueue(w, items)
				})
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending|syncing|synced|failed|dead)")

	return cmd
}

func newQueueAddCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	var (
		data     string
		priority string
	)

	cmd := &cobra.Command{
		Use:          "add <create|update|delete> <entity-type> <entity-id>",
		Short:        "Queue an entity record for sync",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := strings.ToLower(args[0])
			switch op {
			case models.OperationCreate, models.OperationUpdate, models.OperationDelete:
			default:
				return fmt.Errorf("unknown operation %q: must be create, update or delete", args[0])
			}

			payload, err := parseData(data)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				item, err := app.Queue.Enqueue(cmd.Context(), op, args[1], args[2], payload, models.ParsePriority(priority))
				if err != nil {
					return err
				}

				return newFormatter(rootOpts, cmd).render(item, func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "queued %s (%s)\n", item.ID, item.Priority)
				})
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "record snapshot as a JSON object")
	cmd.Flags().StringVar(&priority, "priority", string(models.PriorityNormal), "critical|high|normal|low")

	return cmd
}

func newQueueRequeueCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:          "requeue <item-id>...",
		Short:        "Return failed or dead items to pending",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				for _, id := range args {
					if err := app.Queue.Requeue(cmd.Context(), id); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "requeued %s\n", id)
				}
				if app.Driver != nil {
					app.Driver.Trigger()
				}
				return nil
			})
		},
	}
}

func newQueuePurgeCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:          "purge",
		Short:        "Remove items already confirmed by the server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				n, err := app.Queue.PurgeSynced(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "purged %d synced item(s)\n", n)
				return nil
			})
		},
	}
}

func newQueueClearCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:          "clear",
		Short:        "Remove every queue item, including unsynced ones",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				answer, err := in.ReadInput("Unsynced items will be lost. Type 'yes' to continue: ")
				if err != nil {
					return fmt.Errorf("failed to read confirmation: %w", err)
				}
				if !strings.EqualFold(answer, "yes") {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				n, err := app.Queue.Clear(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d item(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func printQueue(w io.Writer, items []*models.SyncQueueItem) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "queue is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tOPERATION\tENTITY\tPRIORITY\tSTATUS\tRETRIES\tERROR")
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%d\t%s\n",
			it.ID, it.Operation, it.EntityType, it.EntityID, it.Priority, it.Status, it.RetryCount, it.LastError)
	}
	_ = tw.Flush()
}
