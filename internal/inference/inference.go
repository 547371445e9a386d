package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors returned by inference implementations
var (
	// ErrUnsuccessful is returned when the service answered but reported failure.
	ErrUnsuccessful = errors.New("inference service reported failure")

	// ErrEmptyAnswer is returned when a successful answer carries no text.
	ErrEmptyAnswer = errors.New("inference service returned an empty answer")

	// ErrInvalidResponse is returned when the response cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from inference service")

	// ErrEmptyQuestion is returned when asked to answer nothing.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrContentBlocked is returned when a model refused to answer.
	ErrContentBlocked = errors.New("answer blocked by content filters")

	// ErrTransientFailure is returned when retries were exhausted.
	ErrTransientFailure = errors.New("inference service temporarily unavailable")

	// ErrInvalidConfig is returned when a client is constructed with bad settings.
	ErrInvalidConfig = errors.New("invalid inference configuration")
)

// LearnRequest asks the ingestion service to index one file.
type LearnRequest struct {
	VectorDBPath string `json:"vector_db_path"`
	FilePath     string `json:"file_path"`
}

// AskRequest asks the answer service a question against a space index.
// ChatHistory is the JSON produced by EncodeHistory.
type AskRequest struct {
	VectorDBPath string `json:"vector_db_path"`
	Question     string `json:"question"`
	ChatHistory  string `json:"chat_history"`
}

// Ingester indexes documents.
type Ingester interface {
	// Learn indexes req.FilePath into req.VectorDBPath. A non-success
	// reply is returned as an error wrapping ErrUnsuccessful.
	Learn(ctx context.Context, req LearnRequest) error
}

// Answerer generates replies to questions.
type Answerer interface {
	// Ask returns the answer text for req.
	Ask(ctx context.Context, req AskRequest) (string, error)
}

// Turn is one prior exchange of the conversation. The upper-case keys are
// the wire format expected by the answer service.
type Turn struct {
	Human string `json:"HUMAN"`
	AI    string `json:"AI"`
}

// EncodeHistory serializes turns, oldest first, as
// [{"HUMAN": ..., "AI": ...}, ...]. A nil slice encodes as [].
func EncodeHistory(turns []Turn) (string, error) {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return "", fmt.Errorf("failed to serialize chat history: %w", err)
	}
	return string(data), nil
}

// DecodeHistory is the inverse of EncodeHistory. An empty string yields no
// turns.
func DecodeHistory(history string) ([]Turn, error) {
	if history == "" {
		return nil, nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(history), &turns); err != nil {
		return nil, fmt.Errorf("%w: chat history: %v", ErrInvalidResponse, err)
	}
	return turns, nil
}
