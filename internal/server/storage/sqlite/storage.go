// Package sqlite хранит принятые от устройств записи журнала аудита и
// сущностей в SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/iudanet/milkledger/internal/server/storage"
	"github.com/iudanet/milkledger/internal/sqlitedb"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage серверное хранилище: таблицы audit_logs и records
type Storage struct {
	db *sql.DB
}

var (
	_ storage.AuditStorage  = (*Storage)(nil)
	_ storage.RecordStorage = (*Storage)(nil)
)

// New открывает базу dbPath и применяет миграции.
// ":memory:" дает базу в памяти.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sqlitedb.Open(ctx, dbPath, sqlitedb.Sub(embedMigrations, "migrations"))
	if err != nil {
		return nil, fmt.Errorf("server storage: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close закрывает базу
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping используется health check
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	return nil
}

// DB отдает соединение тестам пакета
func (s *Storage) DB() *sql.DB {
	return s.db
}
