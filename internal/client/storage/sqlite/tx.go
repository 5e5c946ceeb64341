package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/milkledger/internal/client/storage"
)

// querier общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlTx реализует storage.Tx поверх соединения или транзакции
type sqlTx struct {
	ctx context.Context
	q   querier
	now func() time.Time
}

// Get decodes record with given id into dst
func (t *sqlTx) Get(collection, id string, dst any) error {
	var value []byte
	err := t.q.QueryRowContext(t.ctx,
		`SELECT value FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
		}
		return storage.Unavailable("sqlite get record", err)
	}

	return storage.Decode(value, dst)
}

// Set creates or replaces record. Upsert keeps seq of existing row.
func (t *sqlTx) Set(collection string, rec storage.Record) error {
	id, value, err := storage.Encode(rec)
	if err != nil {
		return err
	}
	if collection == "" {
		return fmt.Errorf("%w: empty collection", storage.ErrInvalidRecord)
	}

	now := t.now().UnixNano()
	query := `
		INSERT INTO records (collection, id, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := t.q.ExecContext(t.ctx, query, collection, id, value, now, now); err != nil {
		return storage.Unavailable("sqlite save record", err)
	}

	return nil
}

// Delete removes record
func (t *sqlTx) Delete(collection, id string) error {
	if _, err := t.q.ExecContext(t.ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return storage.Unavailable("sqlite delete record", err)
	}

	return nil
}
