package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yerba/yerba-api/internal/api/shared"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/service"
	"github.com/yerba/yerba-api/internal/service/auth"
	"github.com/yerba/yerba-api/internal/store"
	"github.com/yerba/yerba-api/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"nil error", nil, http.StatusInternalServerError},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"wrapped expired token", fmt.Errorf("authenticate: %w", auth.ErrExpiredToken), http.StatusUnauthorized},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"not owned", service.ErrNotOwned, http.StatusForbidden},
		{"space not found", service.ErrSpaceNotFound, http.StatusNotFound},
		{"file not found", service.ErrFileNotFound, http.StatusNotFound},
		{"store not found", store.ErrTaskNotFound, http.StatusNotFound},
		{
			"setup failure keeps inner cause",
			fmt.Errorf("%w: %w", task.ErrSetupFailed, store.ErrFileNotFound),
			http.StatusNotFound,
		},
		{"upload in progress", service.ErrUploadInProgress, http.StatusConflict},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"unsupported file", service.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{"invalid input", fmt.Errorf("%w: %w", service.ErrInvalidInput, domain.ErrInvalidPath), http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"path param", errInvalidPathParam, http.StatusBadRequest},
		{"query param", errInvalidQueryParam, http.StatusBadRequest},
		{"service error", &service.ServiceError{Service: "file", Operation: "upload", Err: errors.New("disk")},
			http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"expired", auth.ErrExpiredToken, "Token expired"},
		{"wrong type", auth.ErrWrongTokenType, "Invalid token"},
		{"not owned", service.ErrNotOwned, "You do not own this space"},
		{"space", service.ErrSpaceNotFound, "Space not found"},
		{"file", service.ErrFileNotFound, "File not found"},
		{"in progress", service.ErrUploadInProgress, "Upload already in progress"},
		{"unsupported", service.ErrUnsupportedFile, "Unsupported file type"},
		{"path", fmt.Errorf("%w: %w", service.ErrInvalidInput, domain.ErrInvalidPath), "Invalid file path"},
		{"space name", fmt.Errorf("%w: %w", service.ErrInvalidInput, domain.ErrEmptySpaceName), "Space name is required"},
		{"message text", domain.ErrEmptyMessageText, "Message text is required"},
		{"generic input", service.ErrInvalidInput, "Invalid request"},
		{"internal detail hidden", errors.New("pq: relation \"tasks\" does not exist"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	v := validator.New()

	err := v.Struct(&CreateSpaceRequest{})
	require.Error(t, err)
	assert.Equal(t, "Invalid name: required field", SanitizeValidationError(err))

	err = v.Struct(&SendMessageRequest{Text: string(make([]byte, MaxMessageTextLength+1))})
	require.Error(t, err)
	assert.Equal(t, "Invalid text: too long", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		fallback string
		status   int
		message  string
	}{
		{"mapped error ignores fallback", service.ErrSpaceNotFound, "Failed to load", http.StatusNotFound, "Space not found"},
		{"unmapped error uses fallback", errors.New("db down"), "Failed to load", http.StatusInternalServerError,
			"Failed to load"},
		{"unmapped without fallback", errors.New("db down"), "", http.StatusInternalServerError,
			"An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(shared.WithTraceID(req.Context(), "trace"))
			w := httptest.NewRecorder()

			HandleAPIError(w, req, tt.err, tt.fallback)

			assert.Equal(t, tt.status, w.Code)
			var resp shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.message, resp.Error)
			assert.Equal(t, "trace", resp.TraceID)
		})
	}
}
