package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
)

// Prune удаляет записи старше daysToKeep дней.
//
// Удаление санкционировано чекпоинтом: хеш последней удаленной записи
// сохраняется с подписью, и проверка цепочки начинается с него. Чекпоинт
// и удаление выполняются одной транзакцией, затем в цепочку добавляется
// AUDIT_CLEANUP. Если удалять нечего, возвращает 0 и ничего не пишет.
func (l *Ledger) Prune(ctx context.Context, daysToKeep int) (int, error) {
	if daysToKeep < 0 {
		return 0, fmt.Errorf("days to keep must not be negative, got %d", daysToKeep)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unreadable != nil {
		return 0, l.unreadable
	}

	cutoff := retentionCutoff(l.clock.Now(), daysToKeep)

	chain, err := l.loadChain(ctx)
	if err != nil {
		return 0, err
	}

	// Метки монотонны, поэтому старые записи образуют префикс цепочки.
	// Нечитаемая запись останавливает префикс: ее возраст неизвестен.
	n := 0
	for _, se := range chain {
		if se.Entry == nil {
			break
		}
		ts, err := se.Entry.Time()
		if err != nil || !ts.Before(cutoff) {
			break
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}

	if err := l.evictLocked(ctx, chain, n); err != nil {
		return 0, err
	}

	data := map[string]any{
		"removedCount": n,
		"cutoffDate":   formatTimestamp(cutoff),
		"daysToKeep":   daysToKeep,
	}
	notes := fmt.Sprintf("Removed %d audit entries older than %d days", n, daysToKeep)

	entry, item, err := l.appendLocked(ctx, models.ActionAuditCleanup, "audit_log", "cleanup", data, notes)
	if err != nil {
		// Удаление уже зафиксировано чекпоинтом
		l.logger.Error("failed to log audit cleanup", slog.String("error", err.Error()))
		return n, fmt.Errorf("entries pruned but cleanup entry not logged: %w", err)
	}
	l.queue.Notify(item.Priority)

	l.logger.Info("audit entries pruned",
		slog.Int("removed", n),
		slog.Int("days_to_keep", daysToKeep),
		slog.String("cleanup_entry", entry.ID))

	return n, nil
}

// evictLocked удаляет первые n записей и обновляет подписанный чекпоинт
// одной транзакцией. Все удаляемые записи должны быть читаемы: чекпоинт
// берет хеш и метку последней из них. Вызывается под l.mu.
func (l *Ledger) evictLocked(ctx context.Context, chain []storedEntry, n int) error {
	if n <= 0 || n > len(chain) {
		return fmt.Errorf("cannot evict %d of %d entries", n, len(chain))
	}
	for i, se := range chain[:n] {
		if se.Entry == nil {
			return fmt.Errorf("%w: entry %d (%s) cannot be checkpointed", ErrChainUnreadable, i, se.ID)
		}
	}

	prev, err := l.Checkpoint(ctx)
	if err != nil {
		return err
	}

	last := chain[n-1].Entry
	cp := &models.Checkpoint{
		ID:                  models.CheckpointID,
		PrunedCount:         n,
		LastPrunedHash:      last.Hash,
		LastPrunedTimestamp: last.Timestamp,
		CreatedAt:           formatTimestamp(l.clock.Now()),
	}
	if prev != nil {
		cp.PrunedCount += prev.PrunedCount
	}
	if n < len(chain) {
		cp.FirstRetainedID = chain[n].ID
	}
	cp.Signature = l.signer.Sign(checkpointParts(cp)...)

	err = l.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Set(CollectionMeta, cp); err != nil {
			return err
		}
		for _, se := range chain[:n] {
			if err := tx.Delete(CollectionEntries, se.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to prune audit entries: %w", err)
	}

	l.count -= n
	if l.count < 0 {
		l.count = 0
	}
	telemetry.AuditPrunedTotal.Add(float64(n))

	return nil
}

// retentionCutoff возвращает границу хранения для daysToKeep относительно now
func retentionCutoff(now time.Time, daysToKeep int) time.Time {
	return now.AddDate(0, 0, -daysToKeep)
}
