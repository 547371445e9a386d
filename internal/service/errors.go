package service

import (
	"errors"
	"fmt"

	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

// Common service errors. Callers check them with errors.Is.
var (
	// ErrNotOwned indicates a space is owned by a different user than the
	// one making the request. API layer should map this to 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrSpaceNotFound indicates that the space does not exist.
	ErrSpaceNotFound = errors.New("space not found")

	// ErrFileNotFound indicates that the file does not exist in the space.
	ErrFileNotFound = errors.New("file not found")

	// ErrMessageNotFound indicates that the message does not exist in the space.
	ErrMessageNotFound = errors.New("message not found")

	// ErrUploadInProgress indicates another upload to the same path is
	// still receiving bytes.
	ErrUploadInProgress = errors.New("an upload to this path is in progress")

	// ErrInvalidInput wraps validation failures of caller-supplied values.
	ErrInvalidInput = errors.New("invalid input")
)

// ServiceError wraps unexpected errors with the failing operation.
type ServiceError struct {
	// Service is the service that failed, e.g. "file".
	Service string
	// Operation is the operation that failed, e.g. "upload".
	Operation string
	// Message is a human-readable description of the error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns the service sentinel for known conditions and a
// *ServiceError for everything else. A nil err yields nil.
func NewServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrNotOwned), errors.Is(err, ErrSpaceNotFound),
		errors.Is(err, ErrFileNotFound), errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrUploadInProgress), errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, store.ErrSpaceNotFound):
		return ErrSpaceNotFound
	case errors.Is(err, store.ErrFileNotFound):
		return ErrFileNotFound
	case errors.Is(err, store.ErrMessageNotFound):
		return ErrMessageNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrUploadInProgress
	case errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrEmptyFilePath),
		errors.Is(err, domain.ErrEmptySpaceName),
		errors.Is(err, domain.ErrEmptyMessageText):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
