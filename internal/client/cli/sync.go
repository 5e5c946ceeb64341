package cli

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/client/iocli"
	clientsync "github.com/iudanet/milkledger/internal/client/sync"
	"github.com/iudanet/milkledger/internal/safego"
)

// NewSyncCommand создает команду однократной синхронизации.
// Отправляет пакеты, пока очередь не опустеет или сервер не станет недоступен.
func NewSyncCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:          "sync",
		Short:        "Push pending queue items to the server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				if app.Driver == nil {
					return ErrSyncDisabled
				}

				if _, err := app.Queue.RecoverStale(cmd.Context()); err != nil {
					return err
				}

				total := &clientsync.Result{}
				var syncErr error
				for {
					res, err := app.Driver.SyncOnce(cmd.Context())
					if res != nil {
						total.Attempted += res.Attempted
						total.Synced += res.Synced
						total.Duplicates += res.Duplicates
						total.Failed += res.Failed
						total.Requeued += res.Requeued
					}
					if err != nil {
						syncErr = err
						break
					}
					if res.Attempted < app.Config.Client.Sync.BatchSize {
						break
					}
				}

				err := newFormatter(rootOpts, cmd).render(total, func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "attempted %d, synced %d (duplicates %d), failed %d, requeued %d\n",
						total.Attempted, total.Synced, total.Duplicates, total.Failed, total.Requeued)
				})
				if err != nil {
					return err
				}

				if errors.Is(syncErr, clientsync.ErrNetwork) {
					return &ExitError{Code: ExitFailure, Message: "server unavailable, items stay queued", Err: syncErr}
				}
				return syncErr
			})
		},
	}
}

// NewRunCommand создает команду фоновой синхронизации до SIGINT/SIGTERM
func NewRunCommand(rootOpts *RootOptions, in iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:          "run",
		Short:        "Run the background sync driver until interrupted",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, rootOpts, in, cmd.ErrOrStderr(), func(app *App) error {
				if app.Driver == nil {
					return ErrSyncDisabled
				}

				done := make(chan struct{})
				safego.Go(app.Logger, "sync-driver", func() {
					defer close(done)
					_ = app.Driver.Run(ctx)
				})

				<-ctx.Done()
				<-done
				return nil
			})
		},
	}
}
