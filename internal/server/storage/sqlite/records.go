package sqlite

import (
	"context"
	"fmt"

	"github.com/iudanet/milkledger/internal/server/storage"
)

// SaveRecord stores a pushed record once. Returns false for duplicate ID.
func (s *Storage) SaveRecord(ctx context.Context, record *storage.Record) (bool, error) {
	if record == nil || record.ID == "" {
		return false, storage.ErrInvalidEntry
	}

	data := string(record.Data)
	if data == "" {
		data = "null"
	}

	query := `
		INSERT INTO records (id, device_id, operation, entity_type, entity_id, data, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.DeviceID,
		record.Operation,
		record.EntityType,
		record.EntityID,
		data,
		record.ReceivedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n == 1, nil
}
