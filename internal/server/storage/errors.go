package storage

import "errors"

// Common storage errors
var (
	// ErrEntryNotFound indicates that audit entry was not found
	ErrEntryNotFound = errors.New("audit entry not found")

	// ErrInvalidEntry indicates that entry cannot be stored (missing id or hash)
	ErrInvalidEntry = errors.New("invalid audit entry")
)
