package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every record validation error, so callers
	// can classify them without naming each one.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPath is returned when a storage path escapes its space directory.
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrUnauthorized is returned when a request carries no owner identity.
	ErrUnauthorized = errors.New("unauthorized operation")
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
