package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Имена коллекций хранилища
const (
	CollectionAuditLogs  = "auditLogs"
	CollectionLedgerMeta = "ledgerMeta"
	CollectionSyncQueue  = "syncQueue"
	CollectionSyncMeta   = "syncMeta"
)

// Backend тип выбранного бэкенда хранилища
type Backend string

// Поддерживаемые бэкенды
const (
	BackendIndexed Backend = "sqlite" // индексированное хранилище
	BackendFlat    Backend = "bolt"   // плоское key-value хранилище
)

// Record значение, которое можно положить в коллекцию.
// Значение сериализуется в JSON, ключом служит RecordID.
type Record interface {
	RecordID() string
}

//go:generate moq -out store_mock.go . Store Tx

// Store defines the key-value store with named collections.
// Every backend keeps insertion order within a collection:
// GetAll returns values in the order their ids were first written.
type Store interface {
	// Get decodes record with given id into dst.
	// Returns ErrNotFound if record doesn't exist.
	Get(ctx context.Context, collection, id string, dst any) error

	// Set creates or replaces record. Replacing keeps original insertion position.
	Set(ctx context.Context, collection string, rec Record) error

	// GetAll returns raw JSON values of collection in insertion order.
	// Returns empty slice if collection is empty.
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)

	// Delete removes record. Deleting missing record is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Update runs fn in a single atomic transaction.
	// If fn returns error, none of its writes are applied.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Stats returns number of records per collection
	Stats(ctx context.Context) (map[string]int, error)

	// Backend reports which backend serves this store
	Backend() Backend

	// Close closes the store. Subsequent calls return ErrStorageClosed
	// wrapped in ErrStorageUnavailable.
	Close() error
}

// Tx is a write transaction opened by Store.Update
type Tx interface {
	Get(collection, id string, dst any) error
	Set(collection string, rec Record) error
	Delete(collection, id string) error
}

// Encode сериализует запись и проверяет ее идентификатор
func Encode(rec Record) (string, []byte, error) {
	if rec == nil {
		return "", nil, ErrInvalidRecord
	}
	id := rec.RecordID()
	if id == "" {
		return "", nil, fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return id, value, nil
}

// Decode разбирает сохраненное значение. Числа сохраняются как json.Number,
// чтобы повторное хеширование давало тот же результат.
func Decode(value []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
