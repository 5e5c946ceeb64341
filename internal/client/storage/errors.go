package storage

import (
	"errors"
	"fmt"
)

// Common client storage errors
var (
	// ErrNotFound indicates that record with given id does not exist in collection
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrStorageUnavailable indicates that underlying storage failed to read or write
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidRecord indicates that record cannot be stored (empty id, unencodable value)
	ErrInvalidRecord = errors.New("invalid record")
)

// Unavailable оборачивает ошибку ввода-вывода в ErrStorageUnavailable,
// сохраняя исходную ошибку для errors.Is/As
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
