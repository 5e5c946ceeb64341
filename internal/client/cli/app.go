package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/iudanet/milkledger/internal/auth"
	clientapi "github.com/iudanet/milkledger/internal/client/api"
	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/client/ledger"
	"github.com/iudanet/milkledger/internal/client/queue"
	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/client/storage/boltdb"
	"github.com/iudanet/milkledger/internal/client/storage/sqlite"
	clientsync "github.com/iudanet/milkledger/internal/client/sync"
	"github.com/iudanet/milkledger/internal/clock"
	"github.com/iudanet/milkledger/internal/config"
	"github.com/iudanet/milkledger/internal/crypto"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
)

// ErrSyncDisabled returned by commands that need a remote when client.remote_url is empty
var ErrSyncDisabled = errors.New("sync is not configured: set client.remote_url")

// App собранный клиент: хранилище, очередь, журнал и драйвер синхронизации.
// Driver равен nil в пробном режиме (без client.remote_url).
type App struct {
	Config *config.Config
	Store  storage.Store
	Queue  *queue.Queue
	Ledger *ledger.Ledger
	Driver *clientsync.Driver
	Logger *slog.Logger
}

// openApp загружает конфигурацию и открывает все компоненты клиента.
// Пустой секрет подписи запрашивается через in.
func openApp(ctx context.Context, opts *RootOptions, in iocli.IO, logOut io.Writer) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(logOut, cfg.Logging.Format, level)

	if err := os.MkdirAll(cfg.Client.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	secret := cfg.Client.SigningSecret
	if secret == "" {
		if in == nil {
			return nil, fmt.Errorf("signing secret is not configured")
		}
		secret, err = in.ReadPassword("Signing secret: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read signing secret: %w", err)
		}
		if secret == "" {
			return nil, fmt.Errorf("signing secret cannot be empty")
		}
	}

	store, err := openStore(ctx, cfg.Client, logger)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	q := queue.New(store, clk, cfg.Client.Sync.MaxRetries, logger)

	l, err := ledger.New(ctx, store, q, ledger.Config{
		Keys: func(machineID string) ([]byte, error) {
			return crypto.DeriveSigningKey(secret, machineID)
		},
		Clock:      clk,
		UserAgent:  cfg.Client.UserAgent,
		Priority:   models.ParsePriority(cfg.Client.AuditPriority),
		MaxEntries: cfg.Client.Retention.MaxEntries,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	app := &App{
		Config: cfg,
		Store:  store,
		Queue:  q,
		Ledger: l,
		Logger: logger,
	}

	if cfg.Client.SyncEnabled() {
		app.Driver, err = newDriver(cfg.Client, l, q, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	} else {
		logger.Debug("remote url not configured, running in trial mode")
	}

	return app, nil
}

// openStore выбирает бэкенд по client.backend
func openStore(ctx context.Context, cfg config.ClientConfig, logger *slog.Logger) (storage.Store, error) {
	indexed := sqlite.Opener(cfg.SQLitePath())
	flat := boltdb.Opener(cfg.BoltPath())

	switch cfg.Backend {
	case config.BackendSQLite:
		return storage.Open(ctx, indexed, nil, logger)
	case config.BackendBolt:
		return storage.Open(ctx, nil, flat, logger)
	default:
		return storage.Open(ctx, indexed, flat, logger)
	}
}

// newDriver связывает push клиент, токены устройства и очередь
func newDriver(cfg config.ClientConfig, l *ledger.Ledger, q *queue.Queue, logger *slog.Logger) (*clientsync.Driver, error) {
	if cfg.PushSecret == "" {
		return nil, fmt.Errorf("client.push_secret: %w", auth.ErrEmptySecret)
	}

	tokens := auth.NewTokenSource(auth.Config{
		Secret: []byte(cfg.PushSecret),
		TTL:    cfg.Sync.TokenTTL,
	}, l.MachineID(), l.Actor)

	client := clientapi.NewClient(cfg.RemoteURL, tokens,
		clientapi.WithTimeout(cfg.Sync.PushTimeout),
		clientapi.WithUserAgent(cfg.UserAgent),
	)
	d := clientsync.NewDriver(client, l, q, clientsync.Config{
		Interval:      cfg.Sync.Interval,
		PushTimeout:   cfg.Sync.PushTimeout,
		ProbeInterval: cfg.Sync.ProbeInterval,
		BatchSize:     cfg.Sync.BatchSize,
	}, logger)
	q.OnEnqueue(d.HandleEnqueue)

	return d, nil
}

// Close закрывает хранилище
func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

// withApp открывает клиент на время выполнения fn
func withApp(ctx context.Context, opts *RootOptions, in iocli.IO, logOut io.Writer, fn func(app *App) error) (err error) {
	app, err := openApp(ctx, opts, in, logOut)
	if err != nil {
		return &ExitError{Code: ExitConfig, Message: "failed to open client", Err: err}
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(app)
}
