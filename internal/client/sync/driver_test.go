package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/milkledger/internal/client/api"
	"github.com/iudanet/milkledger/internal/client/queue"
	"github.com/iudanet/milkledger/internal/client/storage/boltdb"
	"github.com/iudanet/milkledger/internal/clock"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/pkg/api"
)

// testClock время очереди, которое двигает только тест
type testClock struct {
	now time.Time
	mu  gosync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestQueue(t *testing.T, maxRetries int) *queue.Queue {
	t.Helper()

	q, _ := setupTestQueueWithClock(t, maxRetries)
	return q
}

func setupTestQueueWithClock(t *testing.T, maxRetries int) (*queue.Queue, *testClock) {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	tc := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return queue.New(store, clock.NewWithSource(tc.Now), maxRetries, discardLogger()), tc
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopMarker() *EntryMarkerMock {
	return &EntryMarkerMock{
		MarkEntriesSyncedFunc: func(ctx context.Context, ids []string, at time.Time) error {
			return nil
		},
	}
}

// acceptAll отвечает accepted на каждый элемент пакета
func acceptAll() *PusherMock {
	return &PusherMock{
		PushAuditLogsFunc: func(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error) {
			resp := &api.PushResponse{Success: true}
			for _, e := range req.Logs {
				resp.Results = append(resp.Results, api.ItemResult{ID: e.ID, Status: api.StatusAccepted})
			}
			return resp, nil
		},
		PushRecordsFunc: func(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error) {
			resp := &api.PushResponse{Success: true}
			for _, r := range req.Records {
				resp.Results = append(resp.Results, api.ItemResult{ID: r.ID, Status: api.StatusAccepted})
			}
			return resp, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

func enqueueAudit(t *testing.T, q *queue.Queue, entryID string, priority models.Priority) *models.SyncQueueItem {
	t.Helper()

	entry := &models.AuditEntry{
		ID:        entryID,
		Timestamp: "2024-03-01T09:00:00.000000000Z",
		Action:    models.ActionSaleCreate,
		Hash:      "sha256:" + fmt.Sprintf("%064d", 1),
	}
	item, err := q.Enqueue(context.Background(), models.OperationAuditAppend, models.EntityTypeAuditLog,
		entryID, entry, priority)
	require.NoError(t, err)
	return item
}

func enqueueRecord(t *testing.T, q *queue.Queue, entityID string, priority models.Priority) *models.SyncQueueItem {
	t.Helper()

	item, err := q.Enqueue(context.Background(), models.OperationCreate, "milk_collection", entityID,
		map[string]any{"liters": 12.5}, priority)
	require.NoError(t, err)
	return item
}

func itemStatus(t *testing.T, q *queue.Queue, id string) *models.SyncQueueItem {
	t.Helper()

	item, err := q.Get(context.Background(), id)
	require.NoError(t, err)
	return item
}

func TestDriver_SyncOnce_EmptyQueue(t *testing.T) {
	q := setupTestQueue(t, 0)
	pusher := acceptAll()
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	res, err := d.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{}, res)
	assert.Empty(t, pusher.PushAuditLogsCalls())
	assert.Empty(t, pusher.PushRecordsCalls())
}

func TestDriver_SyncOnce_AcceptedAndDuplicate(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)

	a := enqueueAudit(t, q, "AUD-1", models.PriorityLow)
	b := enqueueAudit(t, q, "AUD-2", models.PriorityLow)

	pusher := &PusherMock{
		PushAuditLogsFunc: func(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error) {
			return &api.PushResponse{Success: true, Results: []api.ItemResult{
				{ID: "AUD-1", Status: api.StatusAccepted},
				{ID: "AUD-2", Status: api.StatusDuplicate},
			}}, nil
		},
	}
	marker := noopMarker()
	d := NewDriver(pusher, marker, q, Config{}, discardLogger())

	res, err := d.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 0, res.Failed)

	assert.Equal(t, models.QueueStatusSynced, itemStatus(t, q, a.ID).Status)
	assert.Equal(t, models.QueueStatusSynced, itemStatus(t, q, b.ID).Status)

	require.Len(t, pusher.PushAuditLogsCalls(), 1)
	sent := pusher.PushAuditLogsCalls()[0].Req.Logs
	require.Len(t, sent, 2)
	assert.Equal(t, "AUD-1", sent[0].ID)

	require.Len(t, marker.MarkEntriesSyncedCalls(), 1)
	assert.ElementsMatch(t, []string{"AUD-1", "AUD-2"}, marker.MarkEntriesSyncedCalls()[0].Ids)
	assert.False(t, d.Offline())

	st, err := q.SyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalSynced)
	assert.False(t, st.LastSuccessAt.IsZero())
	assert.Empty(t, st.LastError)
}

func TestDriver_SyncOnce_ItemRejected(t *testing.T) {
	ctx := context.Background()
	q, tc := setupTestQueueWithClock(t, 0)

	ok := enqueueAudit(t, q, "AUD-1", models.PriorityLow)
	bad := enqueueAudit(t, q, "AUD-2", models.PriorityLow)
	silent := enqueueAudit(t, q, "AUD-3", models.PriorityLow)

	pusher := &PusherMock{
		PushAuditLogsFunc: func(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error) {
			return &api.PushResponse{Results: []api.ItemResult{
				{ID: "AUD-1", Status: api.StatusAccepted},
				{ID: "AUD-2", Status: api.StatusRejected, Error: "invalid hash format"},
				{ID: "AUD-unknown", Status: api.StatusAccepted},
			}}, nil
		},
	}
	marker := noopMarker()
	d := NewDriver(pusher, marker, q, Config{}, discardLogger())

	res, err := d.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 2, res.Failed)

	assert.Equal(t, models.QueueStatusSynced, itemStatus(t, q, ok.ID).Status)

	rejected := itemStatus(t, q, bad.ID)
	assert.Equal(t, models.QueueStatusFailed, rejected.Status)
	assert.Equal(t, 1, rejected.RetryCount)
	assert.Equal(t, "invalid hash format", rejected.LastError)

	missing := itemStatus(t, q, silent.ID)
	assert.Equal(t, models.QueueStatusFailed, missing.Status)
	assert.Equal(t, "no result from server", missing.LastError)

	require.Len(t, marker.MarkEntriesSyncedCalls(), 1)
	assert.Equal(t, []string{"AUD-1"}, marker.MarkEntriesSyncedCalls()[0].Ids)

	// Неудачные элементы с оставшимися попытками снова в выборке после паузы
	pending, err := q.PendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	tc.Advance(queue.RetryDelay(1))
	pending, err = q.PendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestDriver_SyncOnce_NetworkFailure(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)

	audit := enqueueAudit(t, q, "AUD-1", models.PriorityLow)
	record := enqueueRecord(t, q, "MC-1", models.PriorityHigh)

	pusher := &PusherMock{
		PushAuditLogsFunc: func(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error) {
			return nil, fmt.Errorf("push audit logs failed: %w: dial tcp: connection refused", clientapi.ErrNetwork)
		},
	}
	marker := noopMarker()
	d := NewDriver(pusher, marker, q, Config{}, discardLogger())

	res, err := d.SyncOnce(ctx)
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, clientapi.ErrNetwork)
	assert.Equal(t, 2, res.Requeued)
	assert.True(t, d.Offline())

	for _, id := range []string{audit.ID, record.ID} {
		item := itemStatus(t, q, id)
		assert.Equal(t, models.QueueStatusPending, item.Status)
		assert.Equal(t, 0, item.RetryCount)
	}

	assert.Empty(t, pusher.PushRecordsCalls())
	assert.Empty(t, marker.MarkEntriesSyncedCalls())

	st, err := q.SyncState(ctx)
	require.NoError(t, err)
	assert.True(t, st.LastSuccessAt.IsZero())
	assert.False(t, st.LastAttemptAt.IsZero())
	assert.Contains(t, st.LastError, "remote unavailable")
}

func TestDriver_SyncOnce_UnauthorizedKeepsRetries(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)
	record := enqueueRecord(t, q, "MC-1", models.PriorityNormal)

	pusher := &PusherMock{
		PushRecordsFunc: func(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error) {
			return nil, fmt.Errorf("push records failed: %w", clientapi.ErrUnauthorized)
		},
	}
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	_, err := d.SyncOnce(ctx)
	require.ErrorIs(t, err, ErrNetwork)

	item := itemStatus(t, q, record.ID)
	assert.Equal(t, models.QueueStatusPending, item.Status)
	assert.Equal(t, 0, item.RetryCount)
}

func TestDriver_SyncOnce_BatchRejected(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)

	audit := enqueueAudit(t, q, "AUD-1", models.PriorityLow)
	record := enqueueRecord(t, q, "MC-1", models.PriorityLow)

	pusher := acceptAll()
	pusher.PushAuditLogsFunc = func(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error) {
		return nil, fmt.Errorf("push audit logs failed: %w: server error (400): invalid request body", clientapi.ErrRejected)
	}
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	res, err := d.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Synced)

	failed := itemStatus(t, q, audit.ID)
	assert.Equal(t, models.QueueStatusFailed, failed.Status)
	assert.Contains(t, failed.LastError, "invalid request body")

	assert.Equal(t, models.QueueStatusSynced, itemStatus(t, q, record.ID).Status)
}

func TestDriver_SyncOnce_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)

	item, err := q.Enqueue(ctx, models.OperationAuditAppend, models.EntityTypeAuditLog, "AUD-x",
		"not an entry", models.PriorityLow)
	require.NoError(t, err)

	pusher := acceptAll()
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	res, err := d.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, pusher.PushAuditLogsCalls())
	assert.Equal(t, models.QueueStatusFailed, itemStatus(t, q, item.ID).Status)
}

func TestDriver_SyncOnce_DeadAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	q, tc := setupTestQueueWithClock(t, 2)
	record := enqueueRecord(t, q, "MC-1", models.PriorityNormal)

	pusher := &PusherMock{
		PushRecordsFunc: func(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error) {
			return &api.PushResponse{Results: []api.ItemResult{
				{ID: req.Records[0].ID, Status: api.StatusRejected, Error: "unknown entity type"},
			}}, nil
		},
	}
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	for i := 0; i < 3; i++ {
		_, err := d.SyncOnce(ctx)
		require.NoError(t, err)
		tc.Advance(queue.RetryDelay(i + 1))
	}

	item := itemStatus(t, q, record.ID)
	assert.Equal(t, models.QueueStatusDead, item.Status)
	assert.Equal(t, 2, item.RetryCount)
	assert.Len(t, pusher.PushRecordsCalls(), 2)
}

func TestDriver_DrainSpendsOneRetryPerPass(t *testing.T) {
	ctx := context.Background()
	q, tc := setupTestQueueWithClock(t, 0)

	bad := enqueueRecord(t, q, "MC-critical", models.PriorityCritical)
	normal := make([]*models.SyncQueueItem, 0, 30)
	for i := 0; i < 30; i++ {
		normal = append(normal, enqueueRecord(t, q, fmt.Sprintf("MC-%02d", i), models.PriorityNormal))
	}

	pusher := acceptAll()
	pusher.PushRecordsFunc = func(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error) {
		resp := &api.PushResponse{Success: true}
		for _, r := range req.Records {
			res := api.ItemResult{ID: r.ID, Status: api.StatusAccepted}
			if r.EntityID == bad.EntityID {
				res.Status = api.StatusRejected
				res.Error = "unknown entity"
			}
			resp.Results = append(resp.Results, res)
		}
		return resp, nil
	}
	d := NewDriver(pusher, noopMarker(), q, Config{BatchSize: 5}, discardLogger())

	d.drain(ctx)

	// Отклоненный элемент ждет паузы и не занимает следующие пакеты
	item := itemStatus(t, q, bad.ID)
	assert.Equal(t, models.QueueStatusFailed, item.Status)
	assert.Equal(t, 1, item.RetryCount)
	for _, it := range normal {
		assert.Equal(t, models.QueueStatusSynced, itemStatus(t, q, it.ID).Status)
	}
	assert.Len(t, pusher.PushRecordsCalls(), 7)

	tests := []struct {
		name      string
		advance   time.Duration
		wantRetry int
	}{
		{name: "backoff not elapsed", advance: queue.RetryDelay(1) - time.Millisecond, wantRetry: 1},
		{name: "first backoff elapsed", advance: time.Millisecond, wantRetry: 2},
		{name: "second backoff not elapsed", advance: queue.RetryDelay(2) / 2, wantRetry: 2},
		{name: "second backoff elapsed", advance: queue.RetryDelay(2) / 2, wantRetry: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc.Advance(tt.advance)
			d.drain(ctx)
			assert.Equal(t, tt.wantRetry, itemStatus(t, q, bad.ID).RetryCount)
		})
	}
}

func TestDriver_SyncOnce_BatchOrder(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)

	for i := 0; i < 4; i++ {
		enqueueRecord(t, q, fmt.Sprintf("LOW-%d", i), models.PriorityLow)
	}
	enqueueRecord(t, q, "CRIT-0", models.PriorityCritical)
	enqueueRecord(t, q, "HIGH-0", models.PriorityHigh)

	pusher := acceptAll()
	d := NewDriver(pusher, noopMarker(), q, Config{BatchSize: 3}, discardLogger())

	res, err := d.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempted)

	require.Len(t, pusher.PushRecordsCalls(), 1)
	sent := pusher.PushRecordsCalls()[0].Req.Records
	require.Len(t, sent, 3)
	assert.Equal(t, "CRIT-0", sent[0].EntityID)
	assert.Equal(t, "HIGH-0", sent[1].EntityID)
	assert.Equal(t, "LOW-0", sent[2].EntityID)

	pending, err := q.PendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestDriver_SyncOnce_SingleFlight(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)
	enqueueRecord(t, q, "MC-1", models.PriorityNormal)

	entered := make(chan struct{})
	release := make(chan struct{})
	pusher := acceptAll()
	accept := pusher.PushRecordsFunc
	pusher.PushRecordsFunc = func(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error) {
		close(entered)
		<-release
		return accept(ctx, req)
	}
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	var wg gosync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := d.SyncOnce(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Synced)
	}()

	<-entered
	res, err := d.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Result{}, res)

	close(release)
	wg.Wait()
	assert.Len(t, pusher.PushRecordsCalls(), 1)
}

func TestDriver_Trigger(t *testing.T) {
	q := setupTestQueue(t, 0)
	d := NewDriver(acceptAll(), noopMarker(), q, Config{}, discardLogger())

	d.HandleEnqueue(models.PriorityLow)
	d.HandleEnqueue(models.PriorityNormal)
	assert.Len(t, d.trigger, 0)

	d.HandleEnqueue(models.PriorityCritical)
	d.HandleEnqueue(models.PriorityHigh)
	d.Trigger()
	assert.Len(t, d.trigger, 1)
}

func TestDriver_Probe(t *testing.T) {
	ctx := context.Background()
	q := setupTestQueue(t, 0)

	healthy := errors.New("still down")
	pusher := acceptAll()
	pusher.HealthFunc = func(ctx context.Context) error {
		return healthy
	}
	d := NewDriver(pusher, noopMarker(), q, Config{}, discardLogger())

	// В онлайне проверка связи не выполняется
	d.probe(ctx)
	assert.Empty(t, pusher.HealthCalls())

	d.offline.Store(true)
	d.probe(ctx)
	assert.True(t, d.Offline())
	assert.Len(t, d.trigger, 0)

	healthy = nil
	d.probe(ctx)
	assert.False(t, d.Offline())
	assert.Len(t, d.trigger, 1)
}

func TestDriver_Run(t *testing.T) {
	q := setupTestQueue(t, 0)
	marker := noopMarker()
	d := NewDriver(acceptAll(), marker, q, Config{Interval: time.Hour}, discardLogger())
	q.OnEnqueue(d.HandleEnqueue)

	// Элемент, застрявший в syncing после падения процесса
	stale := enqueueAudit(t, q, "AUD-stale", models.PriorityLow)
	require.NoError(t, q.MarkSyncing(context.Background(), []string{stale.ID}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return itemStatus(t, q, stale.ID).Status == models.QueueStatusSynced
	}, 5*time.Second, 20*time.Millisecond)

	// Срочный элемент отправляется сразу, не дожидаясь таймера
	urgent := enqueueRecord(t, q, "INV-1", models.PriorityCritical)
	require.Eventually(t, func() bool {
		return itemStatus(t, q, urgent.ID).Status == models.QueueStatusSynced
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop")
	}
}
