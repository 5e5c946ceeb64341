package sqlitedb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationsFS(stmts ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for i, stmt := range stmts {
		name := fmt.Sprintf("%05d_step.sql", i+1)
		fsys[name] = &fstest.MapFile{Data: []byte("-- +goose Up\n" + stmt + "\n")}
	}
	return fsys
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		migrations fstest.MapFS
		wantTables []string
		wantErr    bool
	}{
		{
			name:       "single migration",
			migrations: migrationsFS("CREATE TABLE items (id TEXT PRIMARY KEY);"),
			wantTables: []string{"items"},
		},
		{
			name: "ordered migrations",
			migrations: migrationsFS(
				"CREATE TABLE items (id TEXT PRIMARY KEY);",
				"CREATE TABLE drawers (id TEXT PRIMARY KEY);",
			),
			wantTables: []string{"items", "drawers"},
		},
		{
			name:       "broken migration",
			migrations: migrationsFS("CREATE TABLE ("),
			wantErr:    true,
		},
		{
			name:       "no migrations",
			migrations: fstest.MapFS{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Open(ctx, ":memory:", tt.migrations)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, db)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			for _, table := range tt.wantTables {
				var name string
				err := db.QueryRowContext(ctx,
					`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
				require.NoError(t, err, table)
			}
		})
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	migrations := migrationsFS("CREATE TABLE items (id TEXT PRIMARY KEY);")

	db, err := Open(ctx, path, migrations)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO items (id) VALUES ('a')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Повторное открытие не применяет миграции заново и сохраняет данные
	db, err = Open(ctx, path, migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 1, count)

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSub(t *testing.T) {
	fsys := fstest.MapFS{"migrations/00001_init.sql": &fstest.MapFile{Data: []byte("-- +goose Up\n")}}

	sub := Sub(fsys, "migrations")
	_, err := sub.Open("00001_init.sql")
	require.NoError(t, err)

	assert.Panics(t, func() { Sub(fsys, "../outside") })
}
