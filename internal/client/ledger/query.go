package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/models"
)

// storedEntry позиция цепочки в порядке хранения. Entry == nil, если
// значение не разбирается; ID и Hash тогда извлекаются по возможности.
type storedEntry struct {
	Entry *models.AuditEntry
	Err   error
	ID    string
	Hash  string
}

// loadChain читает цепочку целиком, сохраняя позиции нечитаемых записей
func (l *Ledger) loadChain(ctx context.Context) ([]storedEntry, error) {
	raw, err := l.store.GetAll(ctx, CollectionEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit entries: %w", err)
	}

	chain := make([]storedEntry, 0, len(raw))
	for _, r := range raw {
		var e models.AuditEntry
		if err := storage.Decode(r, &e); err != nil {
			var partial struct {
				ID   string `json:"id"`
				Hash string `json:"hash"`
			}
			_ = json.Unmarshal(r, &partial)
			chain = append(chain, storedEntry{ID: partial.ID, Hash: partial.Hash, Err: err})
			continue
		}
		chain = append(chain, storedEntry{Entry: &e, ID: e.ID, Hash: e.Hash})
	}

	return chain, nil
}

// Entries возвращает все читаемые записи в порядке цепочки.
// Нечитаемые записи пропускаются; VerifyChain сообщает о них как unreadable_entry.
func (l *Ledger) Entries(ctx context.Context) ([]*models.AuditEntry, error) {
	chain, err := l.loadChain(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.AuditEntry, 0, len(chain))
	for i, se := range chain {
		if se.Entry == nil {
			l.logger.Warn("skipping unreadable audit entry",
				slog.Int("index", i),
				slog.String("id", se.ID),
				slog.String("error", se.Err.Error()))
			continue
		}
		entries = append(entries, se.Entry)
	}

	return entries, nil
}

// Recent возвращает последние n записей, новые первыми
func (l *Ledger) Recent(ctx context.Context, n int) ([]*models.AuditEntry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	out := make([]*models.AuditEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out, nil
}

// ByAction возвращает записи с заданным действием
func (l *Ledger) ByAction(ctx context.Context, action models.Action) ([]*models.AuditEntry, error) {
	return l.filter(ctx, func(e *models.AuditEntry) bool {
		return e.Action == action
	})
}

// ByEntity возвращает записи по типу сущности; пустой entityID не фильтрует по идентификатору
func (l *Ledger) ByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	return l.filter(ctx, func(e *models.AuditEntry) bool {
		return e.EntityType == entityType && (entityID == "" || e.EntityID == entityID)
	})
}

// ByDateRange возвращает записи с меткой времени в интервале [from, to]
func (l *Ledger) ByDateRange(ctx context.Context, from, to time.Time) ([]*models.AuditEntry, error) {
	return l.filter(ctx, func(e *models.AuditEntry) bool {
		ts, err := e.Time()
		if err != nil {
			return false
		}
		return !ts.Before(from) && !ts.After(to)
	})
}

// ByActor возвращает записи оператора
func (l *Ledger) ByActor(ctx context.Context, userID string) ([]*models.AuditEntry, error) {
	return l.filter(ctx, func(e *models.AuditEntry) bool {
		return e.UserID == userID
	})
}

// Unsynced возвращает записи, еще не подтвержденные сервером
func (l *Ledger) Unsynced(ctx context.Context) ([]*models.AuditEntry, error) {
	return l.filter(ctx, func(e *models.AuditEntry) bool {
		return !e.Synced
	})
}

// Count возвращает число хранимых записей
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// MarkEntriesSynced отмечает записи подтвержденными сервером.
// Меняются только поля синхронизации; хеш и подпись не затрагиваются.
// Отсутствующие записи (уже удаленные по сроку хранения) пропускаются.
func (l *Ledger) MarkEntriesSynced(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	// Под мьютексом, чтобы не вернуть запись, удаленную параллельным Prune
	l.mu.Lock()
	defer l.mu.Unlock()

	syncedAt := at.UTC()
	err := l.store.Update(ctx, func(tx storage.Tx) error {
		for _, id := range ids {
			var e models.AuditEntry
			if err := tx.Get(CollectionEntries, id, &e); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return err
			}
			e.Synced = true
			e.SyncedAt = &syncedAt
			if err := tx.Set(CollectionEntries, &e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark entries synced: %w", err)
	}

	return nil
}

// Checkpoint возвращает чекпоинт удаления или nil, если удалений не было
func (l *Ledger) Checkpoint(ctx context.Context) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	if err := l.store.Get(ctx, CollectionMeta, models.CheckpointID, &cp); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return &cp, nil
}

func (l *Ledger) filter(ctx context.Context, match func(e *models.AuditEntry) bool) ([]*models.AuditEntry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.AuditEntry, 0)
	for _, e := range entries {
		if match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
