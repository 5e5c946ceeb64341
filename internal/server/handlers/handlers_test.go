package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/milkledger/internal/auth"
	"github.com/iudanet/milkledger/internal/crypto"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/server/storage"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// mockAuditStorage хранит записи в памяти
type mockAuditStorage struct {
	entries  map[string]*models.AuditEntry
	saveErr  error
	listErr  error
	filters  []storage.AuditFilter
	listResp []*models.AuditEntry
	mu       sync.Mutex
}

func newMockAuditStorage() *mockAuditStorage {
	return &mockAuditStorage{entries: make(map[string]*models.AuditEntry)}
}

func (m *mockAuditStorage) SaveAuditEntry(_ context.Context, entry *models.AuditEntry, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return false, m.saveErr
	}
	if _, ok := m.entries[entry.ID]; ok {
		return false, nil
	}
	m.entries[entry.ID] = entry
	return true, nil
}

func (m *mockAuditStorage) ListAuditEntries(_ context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResp, nil
}

// mockRecordStorage хранит записи сущностей в памяти
type mockRecordStorage struct {
	records map[string]*storage.Record
	saveErr error
}

func (m *mockRecordStorage) SaveRecord(_ context.Context, record *storage.Record) (bool, error) {
	if m.saveErr != nil {
		return false, m.saveErr
	}
	if _, ok := m.records[record.ID]; ok {
		return false, nil
	}
	m.records[record.ID] = record
	return true, nil
}

// mockPinger возвращает заданную ошибку
type mockPinger struct {
	err error
}

func (m mockPinger) Ping(context.Context) error {
	return m.err
}

var errStorage = errors.New("database is locked")

// signedEntry создает запись с корректным хешем для устройства machineID
func signedEntry(t *testing.T, id, machineID string) *models.AuditEntry {
	t.Helper()

	e := &models.AuditEntry{
		ID:         id,
		Timestamp:  "2026-03-01T08:00:00.000000000Z",
		SessionID:  "sess-1",
		MachineID:  machineID,
		UserID:     "cashier-1",
		UserAgent:  "milkledger/test",
		Action:     models.ActionMilkIntake,
		EntityType: "milk_collection",
		EntityID:   "COL-" + id,
		Data:       map[string]any{"liters": json.Number("12.5")},
		Signature:  "hmac-sha256:c2ln",
	}
	hash, err := crypto.EntryHash(e)
	require.NoError(t, err)
	e.Hash = hash
	return e
}

// newRequest создает запрос с JSON телом и claims устройства
func newRequest(t *testing.T, method, target string, body any, deviceID string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if deviceID != "" {
		req = req.WithContext(auth.WithClaims(req.Context(), &auth.DeviceClaims{DeviceID: deviceID}))
	}
	return req
}
