package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/models"
)

// Status сводка состояния клиента
type Status struct {
	Checkpoint  *models.Checkpoint `json:"checkpoint,omitempty"`
	Queue       *models.QueueStats `json:"queue"`
	LastSync    *storage.SyncState `json:"lastSync"`
	Collections map[string]int     `json:"collections"`
	MachineID   string             `json:"machineId"`
	Backend     string             `json:"backend"`
	Head        string             `json:"head"`
	RemoteURL   string             `json:"remoteUrl,omitempty"`
	Entries     int                `json:"entries"`
	Unsynced    int                `json:"unsynced"`
	TrialMode   bool               `json:"trialMode"`
}

// NewStatusCommand создает команду вывода состояния журнала и очереди
func NewStatusCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Show ledger, queue and storage status",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				ctx := cmd.Context()

				stats, err := app.Queue.Stats(ctx)
				if err != nil {
					return err
				}
				unsynced, err := app.Ledger.Unsynced(ctx)
				if err != nil {
					return err
				}
				cp, err := app.Ledger.Checkpoint(ctx)
				if err != nil {
					return err
				}
				collections, err := app.Store.Stats(ctx)
				if err != nil {
					return err
				}
				lastSync, err := app.Queue.SyncState(ctx)
				if err != nil {
					return err
				}

				st := Status{
					Checkpoint:  cp,
					Queue:       stats,
					LastSync:    lastSync,
					Collections: collections,
					MachineID:   app.Ledger.MachineID(),
					Backend:     string(app.Store.Backend()),
					Head:        app.Ledger.Head(),
					RemoteURL:   app.Config.Client.RemoteURL,
					Entries:     app.Ledger.Count(),
					Unsynced:    len(unsynced),
					TrialMode:   !app.Config.Client.SyncEnabled(),
				}

				return newFormatter(rootOpts, cmd).render(st, func(w io.Writer) {
					printStatus(w, &st)
				})
			})
		},
	}
}

func printStatus(w io.Writer, st *Status) {
	_, _ = fmt.Fprintf(w, "Machine:  %s\n", st.MachineID)
	_, _ = fmt.Fprintf(w, "Backend:  %s\n", st.Backend)
	if st.TrialMode {
		_, _ = fmt.Fprintln(w, "Sync:     disabled (trial mode)")
	} else {
		_, _ = fmt.Fprintf(w, "Sync:     %s\n", st.RemoteURL)
		printLastSync(w, st.LastSync)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "Entries:  %d (%d unsynced)\n", st.Entries, st.Unsynced)
	head := st.Head
	if head == "" {
		head = "(empty chain)"
	}
	_, _ = fmt.Fprintf(w, "Head:     %s\n", head)
	if cp := st.Checkpoint; cp != nil {
		_, _ = fmt.Fprintf(w, "Pruned:   %d entries, last at %s\n", cp.PrunedCount, cp.LastPrunedTimestamp)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "Queue:    %d item(s)\n", st.Queue.Total)
	statuses := []models.QueueStatus{
		models.QueueStatusPending,
		models.QueueStatusSyncing,
		models.QueueStatusFailed,
		models.QueueStatusDead,
		models.QueueStatusSynced,
	}
	for _, s := range statuses {
		if n := st.Queue.ByStatus[s]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %-8s %d\n", s, n)
		}
	}

	names := make([]string, 0, len(st.Collections))
	for name := range st.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Collections:")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-16s %d\n", name, st.Collections[name])
	}
}

func printLastSync(w io.Writer, st *storage.SyncState) {
	if st == nil || st.LastAttemptAt.IsZero() {
		_, _ = fmt.Fprintln(w, "          never synced")
		return
	}
	if !st.LastSuccessAt.IsZero() {
		_, _ = fmt.Fprintf(w, "          last success %s\n", st.LastSuccessAt.Local().Format(time.DateTime))
	}
	if st.LastError != "" {
		_, _ = fmt.Fprintf(w, "          last attempt %s failed: %s\n", st.LastAttemptAt.Local().Format(time.DateTime), st.LastError)
	}
	_, _ = fmt.Fprintf(w, "          %d item(s) delivered\n", st.TotalSynced)
}
