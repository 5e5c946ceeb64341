package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SyncStateID ключ записи состояния синхронизации в CollectionSyncMeta
const SyncStateID = "state"

// SyncState итог последних проходов синхронизации.
// Нулевое значение означает, что синхронизаций еще не было.
type SyncState struct {
	LastSuccessAt time.Time `json:"lastSuccessAt"` // LastSuccessAt конец последнего прохода без сетевой ошибки
	LastAttemptAt time.Time `json:"lastAttemptAt"` // LastAttemptAt конец последнего прохода
	LastError     string    `json:"lastError"`     // LastError ошибка последнего прохода ("" при успехе)
	TotalSynced   int       `json:"totalSynced"`   // TotalSynced элементов подтверждено за все время
}

// RecordID возвращает ключ записи
func (s *SyncState) RecordID() string {
	return SyncStateID
}

// LoadSyncState читает состояние синхронизации
func LoadSyncState(ctx context.Context, store Store) (*SyncState, error) {
	var st SyncState
	if err := store.Get(ctx, CollectionSyncMeta, SyncStateID, &st); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &SyncState{}, nil
		}
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	return &st, nil
}

// SaveSyncState сохраняет состояние синхронизации
func SaveSyncState(ctx context.Context, store Store, st *SyncState) error {
	if err := store.Set(ctx, CollectionSyncMeta, st); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}
