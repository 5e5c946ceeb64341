package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/server/storage"
)

// defaultListLimit ограничение выдачи, если фильтр его не задает
const defaultListLimit = 100

const auditColumns = `id, timestamp, session_id, machine_id, user_id, user_agent,
	action, entity_type, entity_id, data, notes, previous_hash, hash, signature`

// SaveAuditEntry stores an entry once.
// Returns false if entry with this ID already exists, the existing row is kept.
func (s *Storage) SaveAuditEntry(ctx context.Context, entry *models.AuditEntry, receivedAt time.Time) (bool, error) {
	if entry == nil || entry.ID == "" || entry.Hash == "" {
		return false, storage.ErrInvalidEntry
	}

	data, err := json.Marshal(entry.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entry data: %w", err)
	}

	query := `
		INSERT INTO audit_logs (` + auditColumns + `, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.SessionID,
		entry.MachineID,
		entry.UserID,
		entry.UserAgent,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		string(data),
		entry.Notes,
		entry.PreviousHash,
		entry.Hash,
		entry.Signature,
		receivedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n == 1, nil
}

// GetAuditEntry retrieves a single entry by ID
func (s *Storage) GetAuditEntry(ctx context.Context, id string) (*models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = ?`

	entry, err := scanAuditEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return entry, nil
}

// ListAuditEntries returns entries matching filter, newest first
func (s *Storage) ListAuditEntries(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.MachineID != "" {
		where = append(where, "machine_id = ?")
		args = append(args, filter.MachineID)
	}
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditEntry(row rowScanner) (*models.AuditEntry, error) {
	var (
		entry  models.AuditEntry
		action string
		data   string
	)

	err := row.Scan(
		&entry.ID,
		&entry.Timestamp,
		&entry.SessionID,
		&entry.MachineID,
		&entry.UserID,
		&entry.UserAgent,
		&action,
		&entry.EntityType,
		&entry.EntityID,
		&data,
		&entry.Notes,
		&entry.PreviousHash,
		&entry.Hash,
		&entry.Signature,
	)
	if err != nil {
		return nil, err
	}
	entry.Action = models.Action(action)

	// Числа остаются json.Number, чтобы хеш записи пересчитывался без потерь
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&entry.Data); err != nil {
		return nil, fmt.Errorf("failed to decode entry data: %w", err)
	}

	return &entry, nil
}
