package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every per-record not-found error below.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity reports a record rejected before or by the store.
	// The wrapped error carries the detail.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed reports a begin, commit or rollback failure.
	ErrTransactionFailed = errors.New("transaction failed")

	ErrSpaceNotFound   = fmt.Errorf("%w: space", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("%w: task", ErrNotFound)
	ErrFileNotFound    = fmt.Errorf("%w: file", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)
)

// IsNotFoundError reports whether err is any of the not-found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
