package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/client/ledger"
	"github.com/iudanet/milkledger/internal/models"
)

// dateLayout формат дат в флагах --from/--to (кроме RFC3339)
const dateLayout = "2006-01-02"

// EntriesOptions флаги команды entries. Допускается только один фильтр.
type EntriesOptions struct {
	Action     string
	EntityType string
	EntityID   string
	Actor      string
	From       string
	To         string
	Limit      int
	Unsynced   bool
}

// NewEntriesCommand создает команду просмотра журнала
func NewEntriesCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	opts := &EntriesOptions{}

	cmd := &cobra.Command{
		Use:          "entries",
		Short:        "List audit entries",
		Long:         "List audit entries newest first, or in chain order when a filter is set.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				entries, err := queryEntries(cmd.Context(), app.Ledger, opts)
				if err != nil {
					return err
				}

				return newFormatter(rootOpts, cmd).render(entries, func(w io.Writer) {
					printEntries(w, entries)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "filter by action")
	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "filter by entity type")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "narrow --entity-type to one entity")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "filter by operator id")
	cmd.Flags().StringVar(&opts.From, "from", "", "start of date range (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end of date range (YYYY-MM-DD or RFC3339)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "number of recent entries without a filter (0 for all)")
	cmd.Flags().BoolVar(&opts.Unsynced, "unsynced", false, "only entries not confirmed by the server")

	return cmd
}

func queryEntries(ctx context.Context, l *ledger.Ledger, opts *EntriesOptions) ([]*models.AuditEntry, error) {
	filters := 0
	for _, set := range []bool{
		opts.Action != "",
		opts.EntityType != "",
		opts.Actor != "",
		opts.From != "" || opts.To != "",
		opts.Unsynced,
	} {
		if set {
			filters++
		}
	}
	if filters > 1 {
		return nil, fmt.Errorf("only one filter can be used at a time")
	}
	if opts.EntityID != "" && opts.EntityType == "" {
		return nil, fmt.Errorf("--entity-id requires --entity-type")
	}

	switch {
	case opts.Action != "":
		return l.ByAction(ctx, models.Action(opts.Action))
	case opts.EntityType != "":
		return l.ByEntity(ctx, opts.EntityType, opts.EntityID)
	case opts.Actor != "":
		return l.ByActor(ctx, opts.Actor)
	case opts.From != "" || opts.To != "":
		from, to, err := parseRange(opts.From, opts.To)
		if err != nil {
			return nil, err
		}
		return l.ByDateRange(ctx, from, to)
	case opts.Unsynced:
		return l.Unsynced(ctx)
	default:
		return l.Recent(ctx, opts.Limit)
	}
}

// parseRange разбирает границы интервала. Дата без времени в --to
// включает весь день. Пустая граница открыта.
func parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

	if fromRaw != "" {
		t, _, err := parseDate(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}
	if toRaw != "" {
		t, dateOnly, err := parseDate(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}

	return from, to, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t, true, nil
}

func printEntries(w io.Writer, entries []*models.AuditEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "no entries")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIMESTAMP\tACTION\tENTITY\tUSER\tSYNCED\tNOTES")
	for _, e := range entries {
		synced := "no"
		if e.Synced {
			synced = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\n",
			e.Timestamp, e.Action, e.EntityType, e.EntityID, e.UserID, synced, e.Notes)
	}
	_ = tw.Flush()
}
