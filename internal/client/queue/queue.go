// Package queue реализует очередь синхронизации поверх storage.Store.
// Каждая запись сущности, которую нужно доставить на сервер, ставится в
// очередь со снимком данных и приоритетом; SyncDriver забирает элементы
// в порядке приоритет, затем время постановки.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/clock"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
)

// Collection коллекция хранилища, в которой лежат элементы очереди
const Collection = storage.CollectionSyncQueue

// DefaultMaxRetries лимит неудачных попыток до перевода в dead
const DefaultMaxRetries = 5

// retryDelays пауза перед повтором после n-й неудачной попытки (n = индекс+1).
// Дальше последнего значения пауза не растет.
var retryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// RetryDelay возвращает паузу перед следующей попыткой элемента
// с retryCount неудачными попытками
func RetryDelay(retryCount int) time.Duration {
	switch {
	case retryCount <= 0:
		return 0
	case retryCount > len(retryDelays):
		return retryDelays[len(retryDelays)-1]
	default:
		return retryDelays[retryCount-1]
	}
}

var (
	// ErrItemNotFound indicates that queue item does not exist
	ErrItemNotFound = errors.New("queue item not found")

	// ErrInvalidTransition indicates that item status does not allow requested change
	ErrInvalidTransition = errors.New("invalid queue item status transition")
)

// Queue очередь синхронизации.
// Все изменения статусов выполняются под мьютексом: один писатель над очередью.
type Queue struct {
	store      storage.Store
	clock      *clock.Monotonic
	logger     *slog.Logger
	onEnqueue  func(models.Priority)
	maxRetries int
	mu         sync.Mutex
}

// New создает очередь. maxRetries <= 0 означает DefaultMaxRetries.
func New(store storage.Store, clk *clock.Monotonic, maxRetries int, logger *slog.Logger) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{
		store:      store,
		clock:      clk,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// OnEnqueue регистрирует обработчик, вызываемый после постановки элемента.
// Используется для немедленного запуска синхронизации срочных элементов.
func (q *Queue) OnEnqueue(fn func(models.Priority)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.onEnqueue = fn
}

// Notify вызывает обработчик постановки. Ledger вызывает его после
// фиксации транзакции, в которой элемент был записан через NewItem.
func (q *Queue) Notify(priority models.Priority) {
	q.mu.Lock()
	fn := q.onEnqueue
	q.mu.Unlock()

	telemetry.QueueEnqueued.WithLabelValues(string(priority)).Inc()
	if fn != nil {
		fn(priority)
	}
}

// MaxRetries возвращает лимит попыток
func (q *Queue) MaxRetries() int {
	return q.maxRetries
}

// NewItem создает элемент в статусе pending со снимком payload.
// Неизвестный приоритет заменяется на normal.
func (q *Queue) NewItem(operation, entityType, entityID string, payload any, priority models.Priority) (*models.SyncQueueItem, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue payload: %w", err)
	}

	now := q.clock.Tick()
	return &models.SyncQueueItem{
		ID:         uuid.NewString(),
		Operation:  operation,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    raw,
		Priority:   models.ParsePriority(string(priority)),
		Status:     models.QueueStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Enqueue ставит запись сущности в очередь
func (q *Queue) Enqueue(ctx context.Context, operation, entityType, entityID string, payload any, priority models.Priority) (*models.SyncQueueItem, error) {
	item, err := q.NewItem(operation, entityType, entityID, payload, priority)
	if err != nil {
		return nil, err
	}

	if err := q.store.Set(ctx, Collection, item); err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s/%s: %w", operation, entityType, entityID, err)
	}

	q.logger.Debug("item enqueued",
		slog.String("id", item.ID),
		slog.String("entity_type", entityType),
		slog.String("priority", string(item.Priority)))

	q.Notify(item.Priority)
	return item, nil
}

// PendingItems возвращает элементы, готовые к отправке: pending и failed
// с оставшимися попытками, у которых истекла пауза RetryDelay после
// последней неудачи. Порядок: приоритет, время постановки, ID.
// limit <= 0 возвращает все элементы.
func (q *Queue) PendingItems(ctx context.Context, limit int) ([]*models.SyncQueueItem, error) {
	items, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	now := q.clock.Now()
	pending := make([]*models.SyncQueueItem, 0, len(items))
	for _, item := range items {
		if q.eligible(item, now) {
			pending = append(pending, item)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Less(pending[j])
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	return pending, nil
}

// All возвращает все элементы очереди в порядке постановки
func (q *Queue) All(ctx context.Context) ([]*models.SyncQueueItem, error) {
	raw, err := q.store.GetAll(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync queue: %w", err)
	}

	items := make([]*models.SyncQueueItem, 0, len(raw))
	for _, r := range raw {
		var item models.SyncQueueItem
		if err := storage.Decode(r, &item); err != nil {
			// Поврежденный элемент не должен блокировать остальные
			q.logger.Warn("skipping unreadable queue item", slog.String("error", err.Error()))
			continue
		}
		items = append(items, &item)
	}

	return items, nil
}

// Get возвращает элемент по ID
func (q *Queue) Get(ctx context.Context, id string) (*models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	if err := q.store.Get(ctx, Collection, id, &item); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrItemNotFound)
		}
		return nil, err
	}
	return &item, nil
}

// retryable сообщает, ждет ли элемент доставки: pending или failed с оставшимися попытками
func (q *Queue) retryable(item *models.SyncQueueItem) bool {
	switch item.Status {
	case models.QueueStatusPending:
		return true
	case models.QueueStatusFailed:
		return item.RetryCount < q.maxRetries
	default:
		return false
	}
}

// eligible сообщает, можно ли отправить элемент в момент now
func (q *Queue) eligible(item *models.SyncQueueItem, now time.Time) bool {
	if !q.retryable(item) {
		return false
	}
	if item.Status == models.QueueStatusFailed {
		return !now.Before(item.UpdatedAt.Add(RetryDelay(item.RetryCount)))
	}
	return true
}
