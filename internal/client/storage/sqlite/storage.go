package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/sqlitedb"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage represents indexed SQLite storage implementation for client.
// All collections share one records table; seq keeps insertion order.
type Storage struct {
	db  *sql.DB
	now func() time.Time
	mu  sync.RWMutex // защищает db от использования после Close
}

var _ storage.Store = (*Storage)(nil)

// New открывает индексированное хранилище в файле dbPath.
// ":memory:" дает базу в памяти.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sqlitedb.Open(ctx, dbPath, sqlitedb.Sub(embedMigrations, "migrations"))
	if err != nil {
		return nil, storage.Unavailable("open sqlite", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

// Opener возвращает storage.Opener для индексированного бэкенда
func Opener(dbPath string) storage.Opener {
	return func(ctx context.Context) (storage.Store, error) {
		return New(ctx, dbPath)
	}
}

// Backend reports indexed backend
func (s *Storage) Backend() storage.Backend {
	return storage.BackendIndexed
}

// Close closes the database connection
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get decodes record with given id into dst
func (s *Storage) Get(ctx context.Context, collection, id string, dst any) error {
	db, unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	return (&sqlTx{ctx: ctx, q: db, now: s.now}).Get(collection, id, dst)
}

// Set creates or replaces record
func (s *Storage) Set(ctx context.Context, collection string, rec storage.Record) error {
	db, unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	return (&sqlTx{ctx: ctx, q: db, now: s.now}).Set(collection, rec)
}

// Delete removes record
func (s *Storage) Delete(ctx context.Context, collection, id string) error {
	db, unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	return (&sqlTx{ctx: ctx, q: db, now: s.now}).Delete(collection, id)
}

// Update runs fn in a single SQL transaction
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	db, unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Unavailable("sqlite begin transaction", err)
	}

	if err := fn(&sqlTx{ctx: ctx, q: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, storage.Unavailable("sqlite rollback", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storage.Unavailable("sqlite commit", err)
	}

	return nil
}

// GetAll returns raw JSON values of collection in insertion order
func (s *Storage) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	db, unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := db.QueryContext(ctx,
		`SELECT value FROM records WHERE collection = ? ORDER BY seq ASC`, collection)
	if err != nil {
		return nil, storage.Unavailable("sqlite query records", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	values := make([]json.RawMessage, 0)
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, storage.Unavailable("sqlite scan record", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("sqlite iterate records", err)
	}

	return values, nil
}

// Stats returns number of records per collection
func (s *Storage) Stats(ctx context.Context) (map[string]int, error) {
	db, unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := db.QueryContext(ctx,
		`SELECT collection, COUNT(*) FROM records GROUP BY collection`)
	if err != nil {
		return nil, storage.Unavailable("sqlite query stats", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			collection string
			count      int
		)
		if err := rows.Scan(&collection, &count); err != nil {
			return nil, storage.Unavailable("sqlite scan stats", err)
		}
		stats[collection] = count
	}

	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("sqlite iterate stats", err)
	}

	return stats, nil
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) acquire() (*sql.DB, func(), error) {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return nil, nil, storage.Unavailable("sqlite acquire connection", storage.ErrStorageClosed)
	}
	return s.db, s.mu.RUnlock, nil
}
