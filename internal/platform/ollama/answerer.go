// Package ollama provides an inference.Answerer backed by a local Ollama
// server. Like the Gemini backend it answers from the conversation alone
// and never reads the space's vector index.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/yerba/yerba-api/internal/inference"
)

// DefaultTimeout bounds one chat request.
const DefaultTimeout = 120 * time.Second

const systemPrompt = "You are a helpful assistant answering questions about the user's documents. " +
	"Use the earlier conversation as context and answer concisely."

// chatter is the subset of *api.Client the answerer calls.
type chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// Answerer generates answers with an Ollama chat model.
type Answerer struct {
	client chatter
	model  string
	logger *slog.Logger
}

var _ inference.Answerer = (*Answerer)(nil)

// NewAnswerer creates an answerer for the Ollama server at host.
func NewAnswerer(host, model string, timeout time.Duration, logger *slog.Logger) (*Answerer, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", inference.ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: ollama model cannot be empty", inference.ErrInvalidConfig)
	}

	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid ollama host %q", inference.ErrInvalidConfig, host)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Answerer{
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
		model:  model,
		logger: logger.With("component", "ollama_answerer", "model", model),
	}, nil
}

// Ask sends the history and question as one non-streaming chat request.
func (a *Answerer) Ask(ctx context.Context, req inference.AskRequest) (string, error) {
	messages, err := buildMessages(req)
	if err != nil {
		return "", err
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   &stream,
	}

	start := time.Now()
	var answer strings.Builder
	err = a.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("%w: %s", inference.ErrUnsuccessful, statusErr.ErrorMessage)
		}
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}

	text := strings.TrimSpace(answer.String())
	if text == "" {
		return "", inference.ErrEmptyAnswer
	}

	a.logger.DebugContext(ctx, "question answered", "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// buildMessages maps the encoded history onto chat roles. Turns with no AI
// text are dropped.
func buildMessages(req inference.AskRequest) ([]api.Message, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, inference.ErrEmptyQuestion
	}

	turns, err := inference.DecodeHistory(req.ChatHistory)
	if err != nil {
		return nil, err
	}

	messages := make([]api.Message, 0, 2*len(turns)+2)
	messages = append(messages, api.Message{Role: "system", Content: systemPrompt})
	for _, turn := range turns {
		if turn.AI == "" {
			continue
		}
		messages = append(messages,
			api.Message{Role: "user", Content: turn.Human},
			api.Message{Role: "assistant", Content: turn.AI},
		)
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Question})
	return messages, nil
}
