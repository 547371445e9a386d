package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yerba/yerba-api/internal/inference"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAnswerer(t *testing.T) {
	t.Parallel()

	_, err := NewAnswerer("http://localhost:11434", "llama3.2", 0, nil)
	assert.ErrorIs(t, err, inference.ErrInvalidConfig)

	_, err = NewAnswerer("http://localhost:11434", "", 0, discardLogger())
	assert.ErrorIs(t, err, inference.ErrInvalidConfig)

	_, err = NewAnswerer("not a url", "llama3.2", 0, discardLogger())
	assert.ErrorIs(t, err, inference.ErrInvalidConfig)

	a, err := NewAnswerer("http://localhost:11434/", "llama3.2", time.Second, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", a.model)
}

func TestBuildMessages(t *testing.T) {
	t.Parallel()

	msgs, err := buildMessages(inference.AskRequest{
		Question:    "Say that in german please",
		ChatHistory: `[{"HUMAN":"Hello","AI":"Hi! How can I assist you today?"},{"HUMAN":"x","AI":""}]`,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, api.Message{Role: "user", Content: "Hello"}, msgs[1])
	assert.Equal(t, api.Message{Role: "assistant", Content: "Hi! How can I assist you today?"}, msgs[2])
	assert.Equal(t, api.Message{Role: "user", Content: "Say that in german please"}, msgs[3])

	_, err = buildMessages(inference.AskRequest{})
	assert.ErrorIs(t, err, inference.ErrEmptyQuestion)
}

// newOllamaServer fakes the /api/chat endpoint.
func newOllamaServer(t *testing.T, status int, body string, got *api.ChatRequest) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestAnswerer_Ask(t *testing.T) {
	t.Parallel()

	t.Run("answer", func(t *testing.T) {
		t.Parallel()

		var got api.ChatRequest
		host := newOllamaServer(t, http.StatusOK,
			`{"model":"llama3.2","message":{"role":"assistant","content":"Hallo!"},"done":true}`, &got)

		a, err := NewAnswerer(host, "llama3.2", time.Second, discardLogger())
		require.NoError(t, err)

		answer, err := a.Ask(context.Background(), inference.AskRequest{Question: "Hello in German?"})
		require.NoError(t, err)
		assert.Equal(t, "Hallo!", answer)

		assert.Equal(t, "llama3.2", got.Model)
		require.NotNil(t, got.Stream)
		assert.False(t, *got.Stream)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "Hello in German?", got.Messages[1].Content)
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		host := newOllamaServer(t, http.StatusNotFound, `{"error":"model \"nope\" not found"}`, nil)

		a, err := NewAnswerer(host, "nope", time.Second, discardLogger())
		require.NoError(t, err)

		_, err = a.Ask(context.Background(), inference.AskRequest{Question: "q"})
		require.ErrorIs(t, err, inference.ErrUnsuccessful)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("empty answer", func(t *testing.T) {
		t.Parallel()

		host := newOllamaServer(t, http.StatusOK,
			`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true}`, nil)

		a, err := NewAnswerer(host, "llama3.2", time.Second, discardLogger())
		require.NoError(t, err)

		_, err = a.Ask(context.Background(), inference.AskRequest{Question: "q"})
		assert.ErrorIs(t, err, inference.ErrEmptyAnswer)
	})
}
