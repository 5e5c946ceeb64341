package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/server/storage"
)

func testAuditEntry(id, ts, entityID string) *models.AuditEntry {
	return &models.AuditEntry{
		ID:           id,
		Timestamp:    ts,
		SessionID:    "sess-1",
		MachineID:    "machine-1",
		UserID:       "user-1",
		UserAgent:    "milkledger/test",
		Action:       models.ActionSaleCreate,
		EntityType:   "invoice",
		EntityID:     entityID,
		Data:         map[string]any{"total": json.Number("120.5"), "items": []any{"milk"}},
		Notes:        "Sale",
		PreviousHash: "",
		Hash:         "sha256:" + id,
		Signature:    "hmac-sha256:sig",
	}
}

func TestStorage_SaveAuditEntry(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	entry := testAuditEntry("AUD-1", "2026-01-02T10:00:00.000000000Z", "INV-1")

	saved, err := s.SaveAuditEntry(ctx, entry, time.Now())
	require.NoError(t, err)
	assert.True(t, saved)

	// Повторная отправка не меняет сохраненную запись
	dup := entry.Clone()
	dup.Notes = "changed"
	saved, err = s.SaveAuditEntry(ctx, dup, time.Now())
	require.NoError(t, err)
	assert.False(t, saved)

	got, err := s.GetAuditEntry(ctx, "AUD-1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestStorage_SaveAuditEntry_Invalid(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		entry *models.AuditEntry
		name  string
	}{
		{name: "nil entry", entry: nil},
		{name: "empty id", entry: &models.AuditEntry{Hash: "sha256:x"}},
		{name: "empty hash", entry: &models.AuditEntry{ID: "AUD-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, err := s.SaveAuditEntry(ctx, tt.entry, time.Now())
			require.ErrorIs(t, err, storage.ErrInvalidEntry)
			assert.False(t, saved)
		})
	}
}

func TestStorage_GetAuditEntry_NotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetAuditEntry(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrEntryNotFound)
}

func TestStorage_ListAuditEntries(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	for i := 1; i <= 4; i++ {
		entry := testAuditEntry(
			fmt.Sprintf("AUD-%d", i),
			fmt.Sprintf("2026-01-02T10:00:0%d.000000000Z", i),
			fmt.Sprintf("INV-%d", i%2),
		)
		if i == 4 {
			entry.MachineID = "machine-2"
			entry.EntityType = "shift"
		}
		_, err := s.SaveAuditEntry(ctx, entry, time.Now())
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		wantIDs []string
		filter  storage.AuditFilter
	}{
		{
			name:    "all newest first",
			filter:  storage.AuditFilter{},
			wantIDs: []string{"AUD-4", "AUD-3", "AUD-2", "AUD-1"},
		},
		{
			name:    "by entity",
			filter:  storage.AuditFilter{EntityType: "invoice", EntityID: "INV-1"},
			wantIDs: []string{"AUD-3", "AUD-1"},
		},
		{
			name:    "by machine",
			filter:  storage.AuditFilter{MachineID: "machine-2"},
			wantIDs: []string{"AUD-4"},
		},
		{
			name:    "limit",
			filter:  storage.AuditFilter{Limit: 2},
			wantIDs: []string{"AUD-4", "AUD-3"},
		},
		{
			name:    "no match",
			filter:  storage.AuditFilter{EntityType: "farmer"},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.ListAuditEntries(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestStorage_SaveRecord(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	record := &storage.Record{
		ID:         "rec-1",
		DeviceID:   "machine-1",
		Operation:  "create",
		EntityType: "invoice",
		EntityID:   "INV-1",
		Data:       json.RawMessage(`{"total":10}`),
		ReceivedAt: time.Now(),
	}

	saved, err := s.SaveRecord(ctx, record)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.SaveRecord(ctx, record)
	require.NoError(t, err)
	assert.False(t, saved)

	_, err = s.SaveRecord(ctx, &storage.Record{})
	require.ErrorIs(t, err, storage.ErrInvalidEntry)

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStorage_Ping(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	require.NoError(t, s.Ping(context.Background()))

	cleanup()
	require.Error(t, s.Ping(context.Background()))
}

func TestStorage_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	errDB := errors.New("disk I/O error")

	tests := []struct {
		expect func(mock sqlmock.Sqlmock)
		call   func(s *Storage) error
		name   string
	}{
		{
			name: "insert audit entry fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errDB)
			},
			call: func(s *Storage) error {
				_, err := s.SaveAuditEntry(ctx, testAuditEntry("AUD-1", "t", "INV-1"), time.Now())
				return err
			},
		},
		{
			name: "rows affected fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewErrorResult(errDB))
			},
			call: func(s *Storage) error {
				_, err := s.SaveAuditEntry(ctx, testAuditEntry("AUD-1", "t", "INV-1"), time.Now())
				return err
			},
		},
		{
			name: "list query fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM audit_logs").WillReturnError(errDB)
			},
			call: func(s *Storage) error {
				_, err := s.ListAuditEntries(ctx, storage.AuditFilter{})
				return err
			},
		},
		{
			name: "get query fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM audit_logs WHERE id").WillReturnError(errDB)
			},
			call: func(s *Storage) error {
				_, err := s.GetAuditEntry(ctx, "AUD-1")
				return err
			},
		},
		{
			name: "insert record fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO records").WillReturnError(errDB)
			},
			call: func(s *Storage) error {
				_, err := s.SaveRecord(ctx, &storage.Record{ID: "rec-1"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() {
				_ = db.Close()
			}()

			tt.expect(mock)
			err = tt.call(&Storage{db: db})
			require.ErrorIs(t, err, errDB)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ListAuditEntries_CorruptData(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	rows := sqlmock.NewRows([]string{
		"id", "timestamp", "session_id", "machine_id", "user_id", "user_agent",
		"action", "entity_type", "entity_id", "data", "notes", "previous_hash", "hash", "signature",
	}).AddRow("AUD-1", "t", "s", "m", "u", "ua", "SALE_CREATE", "invoice", "INV-1", "{broken", "", "", "sha256:x", "sig")
	mock.ExpectQuery("SELECT .* FROM audit_logs").WillReturnRows(rows)

	_, err = (&Storage{db: db}).ListAuditEntries(context.Background(), storage.AuditFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode entry data")
}

func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	// Используем in-memory database для тестов
	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}
