// Package storagetest содержит общий набор проверок для бэкендов storage.Store.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/milkledger/internal/client/storage"
)

// Record простая запись для проверок
type Record struct {
	Data  map[string]any `json:"data,omitempty"`
	ID    string         `json:"id"`
	Value int            `json:"value"`
}

// RecordID возвращает ключ записи
func (r *Record) RecordID() string { return r.ID }

// Run прогоняет общий контракт хранилища. open должен возвращать
// новое пустое хранилище; закрытие остается за вызывающим.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("set and get", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		require.NoError(t, s.Set(ctx, "items", &Record{ID: "a", Value: 1}))

		var got Record
		require.NoError(t, s.Get(ctx, "items", "a", &got))
		assert.Equal(t, 1, got.Value)

		err := s.Get(ctx, "items", "b", &got)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		err = s.Get(ctx, "nothing", "a", &got)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("insertion order survives overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		for _, id := range []string{"z", "a", "m"} {
			require.NoError(t, s.Set(ctx, "items", &Record{ID: id}))
		}
		require.NoError(t, s.Set(ctx, "items", &Record{ID: "z", Value: 9}))

		assert.Equal(t, []string{"z", "a", "m"}, ids(t, s, "items"))
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, s.Set(ctx, "items", &Record{ID: id}))
		}
		require.NoError(t, s.Delete(ctx, "items", "b"))
		require.NoError(t, s.Delete(ctx, "items", "b"))

		assert.Equal(t, []string{"a", "c"}, ids(t, s, "items"))
	})

	t.Run("update rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		require.NoError(t, s.Set(ctx, "items", &Record{ID: "keep"}))

		errBoom := errors.New("boom")
		err := s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Set("items", &Record{ID: "new"}); err != nil {
				return err
			}
			if err := tx.Delete("items", "keep"); err != nil {
				return err
			}
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		assert.Equal(t, []string{"keep"}, ids(t, s, "items"))
	})

	t.Run("update commits all writes", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		err := s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Set("a", &Record{ID: "1"}); err != nil {
				return err
			}
			return tx.Set("b", &Record{ID: "2"})
		})
		require.NoError(t, err)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats["a"])
		assert.Equal(t, 1, stats["b"])
	})

	t.Run("numbers decode as json.Number", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		require.NoError(t, s.Set(ctx, "items", &Record{ID: "n", Data: map[string]any{"big": int64(1) << 60}}))

		var got Record
		require.NoError(t, s.Get(ctx, "items", "n", &got))
		assert.Equal(t, json.Number("1152921504606846976"), got.Data["big"])
	})

	t.Run("invalid record", func(t *testing.T) {
		s := open(t)
		err := s.Set(context.Background(), "items", &Record{})
		assert.ErrorIs(t, err, storage.ErrInvalidRecord)
	})

	t.Run("closed", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.Close())

		ops := []struct {
			call func() error
			name string
		}{
			{name: "set", call: func() error { return s.Set(ctx, "items", &Record{ID: "a"}) }},
			{name: "get", call: func() error { return s.Get(ctx, "items", "a", &Record{}) }},
			{name: "get all", call: func() error {
				_, err := s.GetAll(ctx, "items")
				return err
			}},
			{name: "delete", call: func() error { return s.Delete(ctx, "items", "a") }},
			{name: "update", call: func() error {
				return s.Update(ctx, func(tx storage.Tx) error { return nil })
			}},
			{name: "stats", call: func() error {
				_, err := s.Stats(ctx)
				return err
			}},
		}
		for _, op := range ops {
			err := op.call()
			assert.ErrorIs(t, err, storage.ErrStorageClosed, op.name)
			assert.ErrorIs(t, err, storage.ErrStorageUnavailable, op.name)
		}
	})

	t.Run("sync state", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		st, err := storage.LoadSyncState(ctx, s)
		require.NoError(t, err)
		assert.True(t, st.LastAttemptAt.IsZero())

		at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
		require.NoError(t, storage.SaveSyncState(ctx, s, &storage.SyncState{
			LastSuccessAt: at,
			LastAttemptAt: at,
			TotalSynced:   7,
		}))

		st, err = storage.LoadSyncState(ctx, s)
		require.NoError(t, err)
		assert.True(t, at.Equal(st.LastSuccessAt))
		assert.Equal(t, 7, st.TotalSynced)
		assert.Empty(t, st.LastError)
	})
}

func ids(t *testing.T, s storage.Store, collection string) []string {
	t.Helper()

	raw, err := s.GetAll(context.Background(), collection)
	require.NoError(t, err)

	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var rec Record
		require.NoError(t, json.Unmarshal(r, &rec))
		out = append(out, rec.ID)
	}
	return out
}
