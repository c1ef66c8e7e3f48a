package storage

import "errors"

// Common storage errors
var (
	// ErrEntityNotFound indicates that no record exists for (entityType, id)
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists indicates that a record for (entityType, id) was
	// already created, most likely by a concurrent writer
	ErrEntityExists = errors.New("entity already exists")
)
