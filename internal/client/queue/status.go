package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
)

// MarkSyncing переводит элементы в syncing перед отправкой.
// Отсутствующие элементы пропускаются.
func (q *Queue) MarkSyncing(ctx context.Context, ids []string) error {
	return q.transition(ctx, ids, func(item *models.SyncQueueItem) bool {
		if item.Status != models.QueueStatusPending && item.Status != models.QueueStatusFailed {
			return false
		}
		item.Status = models.QueueStatusSyncing
		return true
	})
}

// MarkSynced отмечает элемент подтвержденным сервером
func (q *Queue) MarkSynced(ctx context.Context, id string) error {
	err := q.transitionOne(ctx, id, func(item *models.SyncQueueItem) error {
		item.Status = models.QueueStatusSynced
		item.LastError = ""
		return nil
	})
	if err == nil {
		telemetry.QueueTransitions.WithLabelValues(string(models.QueueStatusSynced)).Inc()
	}
	return err
}

// MarkSyncFailed фиксирует неудачную попытку: retryCount+1 и статус failed,
// либо dead при достижении лимита попыток
func (q *Queue) MarkSyncFailed(ctx context.Context, id, reason string) error {
	var status models.QueueStatus
	err := q.transitionOne(ctx, id, func(item *models.SyncQueueItem) error {
		item.RetryCount++
		item.LastError = reason
		item.Status = models.QueueStatusFailed
		if item.RetryCount >= q.maxRetries {
			item.Status = models.QueueStatusDead
		}
		status = item.Status
		return nil
	})
	if err != nil {
		return err
	}

	telemetry.QueueTransitions.WithLabelValues(string(status)).Inc()
	if status == models.QueueStatusDead {
		q.logger.Warn("queue item moved to dead letter",
			slog.String("id", id),
			slog.String("error", reason))
	}
	return nil
}

// ResetSyncing возвращает элементы из syncing в pending без увеличения
// счетчика попыток. Используется при сетевых ошибках, когда сервер
// не получил пакет.
func (q *Queue) ResetSyncing(ctx context.Context, ids []string) error {
	return q.transition(ctx, ids, func(item *models.SyncQueueItem) bool {
		if item.Status != models.QueueStatusSyncing {
			return false
		}
		item.Status = models.QueueStatusPending
		return true
	})
}

// RecoverStale возвращает в pending все элементы, застрявшие в syncing
// после аварийного завершения процесса. Возвращает число элементов.
func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	items, err := q.All(ctx)
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, item := range items {
		if item.Status == models.QueueStatusSyncing {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := q.ResetSyncing(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Requeue возвращает dead или failed элемент в pending со сбросом счетчика попыток
func (q *Queue) Requeue(ctx context.Context, id string) error {
	return q.transitionOne(ctx, id, func(item *models.SyncQueueItem) error {
		if item.Status != models.QueueStatusDead && item.Status != models.QueueStatusFailed {
			return fmt.Errorf("%w: cannot requeue item in status %s", ErrInvalidTransition, item.Status)
		}
		item.Status = models.QueueStatusPending
		item.RetryCount = 0
		item.LastError = ""
		return nil
	})
}

// PurgeSynced удаляет подтвержденные элементы. Возвращает число удаленных.
func (q *Queue) PurgeSynced(ctx context.Context) (int, error) {
	return q.remove(ctx, func(item *models.SyncQueueItem) bool {
		return item.Status == models.QueueStatusSynced
	})
}

// Clear удаляет все элементы очереди. Возвращает число удаленных.
func (q *Queue) Clear(ctx context.Context) (int, error) {
	return q.remove(ctx, func(*models.SyncQueueItem) bool { return true })
}

// Stats возвращает сводку по статусам и приоритетам
func (q *Queue) Stats(ctx context.Context) (*models.QueueStats, error) {
	items, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.QueueStats{
		ByStatus:   make(map[models.QueueStatus]int),
		ByPriority: make(map[models.Priority]int),
		Total:      len(items),
	}
	for _, item := range items {
		stats.ByStatus[item.Status]++
		if q.retryable(item) {
			stats.ByPriority[item.Priority]++
		}
	}

	return stats, nil
}

// transition применяет fn к каждому элементу из ids в одной транзакции.
// fn возвращает false, если элемент не нужно менять.
func (q *Queue) transition(ctx context.Context, ids []string, fn func(item *models.SyncQueueItem) bool) error {
	if len(ids) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.store.Update(ctx, func(tx storage.Tx) error {
		for _, id := range ids {
			var item models.SyncQueueItem
			if err := tx.Get(Collection, id, &item); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return err
			}
			if !fn(&item) {
				continue
			}
			item.UpdatedAt = q.clock.Now()
			if err := tx.Set(Collection, &item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update queue items: %w", err)
	}

	return nil
}

func (q *Queue) transitionOne(ctx context.Context, id string, fn func(item *models.SyncQueueItem) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.store.Update(ctx, func(tx storage.Tx) error {
		var item models.SyncQueueItem
		if err := tx.Get(Collection, id, &item); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s: %w", id, ErrItemNotFound)
			}
			return err
		}
		if err := fn(&item); err != nil {
			return err
		}
		item.UpdatedAt = q.clock.Now()
		return tx.Set(Collection, &item)
	})
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}

	return nil
}

func (q *Queue) remove(ctx context.Context, match func(item *models.SyncQueueItem) bool) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.All(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	err = q.store.Update(ctx, func(tx storage.Tx) error {
		for _, item := range items {
			if !match(item) {
				continue
			}
			if err := tx.Delete(Collection, item.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove queue items: %w", err)
	}

	return removed, nil
}

// RecordPass сохраняет итог прохода синхронизации, завершившегося в at.
// passErr != nil оставляет LastSuccessAt прежним.
func (q *Queue) RecordPass(ctx context.Context, at time.Time, synced int, passErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	st, err := storage.LoadSyncState(ctx, q.store)
	if err != nil {
		return err
	}

	st.LastAttemptAt = at.UTC()
	st.TotalSynced += synced
	st.LastError = ""
	if passErr != nil {
		st.LastError = passErr.Error()
	} else {
		st.LastSuccessAt = at.UTC()
	}

	return storage.SaveSyncState(ctx, q.store, st)
}

// SyncState возвращает итог последних проходов синхронизации
func (q *Queue) SyncState(ctx context.Context) (*storage.SyncState, error) {
	return storage.LoadSyncState(ctx, q.store)
}
