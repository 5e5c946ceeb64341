// Package storage описывает хранилище сервера приема журнала аудита.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iudanet/milkledger/internal/models"
)

// AuditFilter отбор записей журнала для выдачи
type AuditFilter struct {
	MachineID  string
	EntityType string
	EntityID   string
	Limit      int
}

// Record запись сущности, принятая от устройства
type Record struct {
	ReceivedAt time.Time
	Data       json.RawMessage
	ID         string
	DeviceID   string
	Operation  string
	EntityType string
	EntityID   string
}

// AuditStorage defines interface for received audit entries persistence
type AuditStorage interface {
	// SaveAuditEntry stores an entry once. Returns false if an entry with
	// the same ID already exists (duplicate push), the stored row is not changed.
	SaveAuditEntry(ctx context.Context, entry *models.AuditEntry, receivedAt time.Time) (bool, error)

	// GetAuditEntry retrieves a single entry by ID.
	// Returns ErrEntryNotFound if entry doesn't exist
	GetAuditEntry(ctx context.Context, id string) (*models.AuditEntry, error)

	// ListAuditEntries returns entries matching filter, newest first.
	// Returns empty slice if no entries found
	ListAuditEntries(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error)
}

// RecordStorage defines interface for pushed entity records persistence
type RecordStorage interface {
	// SaveRecord stores a record once. Returns false for duplicate ID.
	SaveRecord(ctx context.Context, record *Record) (bool, error)
}
