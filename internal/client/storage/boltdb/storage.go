package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/milkledger/internal/client/storage"
)

var (
	// Вложенные buckets внутри bucket коллекции
	bucketData  = []byte("data")  // id -> JSON значение
	bucketOrder = []byte("order") // seq (big endian) -> id
	bucketSeq   = []byte("seq")   // id -> seq
)

// Storage represents BoltDB storage implementation for client.
// Each collection is a top-level bucket with nested data/order/seq buckets:
// order keeps insertion sequence so GetAll returns records in write order.
type Storage struct {
	db *bbolt.DB
	mu sync.RWMutex // защищает db от использования после Close
}

var _ storage.Store = (*Storage)(nil)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	return &Storage{db: db}, nil
}

// Opener возвращает storage.Opener для плоского бэкенда
func Opener(dbPath string) storage.Opener {
	return func(ctx context.Context) (storage.Store, error) {
		return New(ctx, dbPath)
	}
}

// Backend reports flat backend
func (s *Storage) Backend() storage.Backend {
	return storage.BackendFlat
}

// Close closes the database connection
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get decodes record with given id into dst
func (s *Storage) Get(ctx context.Context, collection, id string, dst any) error {
	return s.view(func(tx *bbolt.Tx) error {
		return (&boltTx{tx: tx}).Get(collection, id, dst)
	})
}

// Set creates or replaces record
func (s *Storage) Set(ctx context.Context, collection string, rec storage.Record) error {
	return s.update(func(tx *bbolt.Tx) error {
		return (&boltTx{tx: tx}).Set(collection, rec)
	})
}

// Delete removes record
func (s *Storage) Delete(ctx context.Context, collection, id string) error {
	return s.update(func(tx *bbolt.Tx) error {
		return (&boltTx{tx: tx}).Delete(collection, id)
	})
}

// Update runs fn in a single bbolt read-write transaction
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.update(func(tx *bbolt.Tx) error {
		if err := fn(&boltTx{tx: tx}); err != nil {
			return &callerError{err: err}
		}
		return nil
	})
}

// GetAll returns raw JSON values of collection in insertion order
func (s *Storage) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	values := make([]json.RawMessage, 0)

	err := s.view(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(collection))
		if root == nil {
			return nil
		}
		data := root.Bucket(bucketData)
		order := root.Bucket(bucketOrder)
		if data == nil || order == nil {
			return fmt.Errorf("collection %s is corrupted", collection)
		}

		// Курсор по order идет в порядке возрастания seq
		c := order.Cursor()
		for _, id := range iterate(c) {
			v := data.Get(id)
			if v == nil {
				continue
			}
			// Значения bbolt действительны только внутри транзакции
			values = append(values, append(json.RawMessage(nil), v...))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// Stats returns number of records per collection
func (s *Storage) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	err := s.view(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, root *bbolt.Bucket) error {
			data := root.Bucket(bucketData)
			if data == nil {
				return nil
			}
			stats[string(name)] = data.Stats().KeyN
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.Unavailable("boltdb read", storage.ErrStorageClosed)
	}
	return wrap("read", s.db.View(fn))
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.Unavailable("boltdb write", storage.ErrStorageClosed)
	}
	return wrap("write", s.db.Update(fn))
}

// wrap оставляет доменные ошибки как есть, а ошибки bbolt оборачивает в ErrStorageUnavailable
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var txErr *callerError
	if errors.As(err, &txErr) {
		return txErr.err
	}
	if errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrInvalidRecord) ||
		errors.Is(err, storage.ErrStorageUnavailable) {
		return err
	}
	return storage.Unavailable("boltdb "+op, err)
}

// callerError помечает ошибку, возвращенную функцией пользователя из Update
type callerError struct {
	err error
}

func (e *callerError) Error() string { return e.err.Error() }

func (e *callerError) Unwrap() error { return e.err }

func iterate(c *bbolt.Cursor) [][]byte {
	var ids [][]byte
	for k, v := c.First(); k != nil; k, v = c.Next() {
		ids = append(ids, v)
	}
	return ids
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
