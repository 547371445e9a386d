package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yerba/yerba-api/internal/api/shared"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/service"
	"github.com/yerba/yerba-api/internal/service/auth"
	"github.com/yerba/yerba-api/internal/store"
)

// errInvalidPathParam marks a malformed or missing URL parameter.
var errInvalidPathParam = errors.New("invalid path parameter")

// errInvalidQueryParam marks a malformed query string value.
var errInvalidQueryParam = errors.New("invalid query parameter")

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// internal error types never reach clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrSpaceNotFound),
		errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrUploadInProgress),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, service.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType

	// Bad request errors
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, errInvalidPathParam),
		errors.Is(err, errInvalidQueryParam):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this space"

	case errors.Is(err, service.ErrSpaceNotFound):
		return "Space not found"
	case errors.Is(err, service.ErrFileNotFound):
		return "File not found"
	case errors.Is(err, service.ErrMessageNotFound):
		return "Message not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrUploadInProgress),
		errors.Is(err, store.ErrDuplicate):
		return "Upload already in progress"

	case errors.Is(err, service.ErrUnsupportedFile):
		return "Unsupported file type"

	case errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrEmptyFilePath):
		return "Invalid file path"
	case errors.Is(err, domain.ErrEmptySpaceName):
		return "Space name is required"
	case errors.Is(err, domain.ErrEmptyMessageText):
		return "Message text is required"
	case errors.Is(err, errInvalidPathParam):
		return "Invalid path parameter"
	case errors.Is(err, errInvalidQueryParam):
		return "Invalid query parameter"
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and a safe message for err.
// A non-empty fallbackMsg replaces the generic message of unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		msg = fallbackMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
