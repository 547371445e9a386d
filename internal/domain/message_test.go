package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewUserMessage(t *testing.T) {
	t.Parallel()

	spaceID := uuid.New()
	msg, err := NewUserMessage(spaceID, "What is Jensen's inequality?")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !msg.IsUserMessage {
		t.Error("Expected a user message")
	}
	if msg.ResponseStatus != ResponseStatusNone {
		t.Errorf("Expected status %s, got %s", ResponseStatusNone, msg.ResponseStatus)
	}
	if msg.FinalizedAt != nil {
		t.Error("Expected no finalization time")
	}

	if _, err := NewUserMessage(spaceID, ""); err != ErrEmptyMessageText {
		t.Errorf("Expected error %v, got %v", ErrEmptyMessageText, err)
	}
	if _, err := NewUserMessage(uuid.Nil, "hi"); err != ErrEmptyMessageSpaceID {
		t.Errorf("Expected error %v, got %v", ErrEmptyMessageSpaceID, err)
	}
}

func TestNewResponseMessage(t *testing.T) {
	t.Parallel()

	user, err := NewUserMessage(uuid.New(), "hello")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	resp, err := NewResponseMessage(user)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resp.IsUserMessage {
		t.Error("Expected a response message")
	}
	if resp.Text != GeneratingResponseText {
		t.Errorf("Expected placeholder text, got %q", resp.Text)
	}
	if resp.ResponseStatus != ResponseStatusGenerating {
		t.Errorf("Expected status %s, got %s", ResponseStatusGenerating, resp.ResponseStatus)
	}
	if resp.UserMessageID == nil || *resp.UserMessageID != user.ID {
		t.Error("Expected response to reference the user message")
	}
	if resp.SpaceID != user.SpaceID {
		t.Error("Expected response in the same space")
	}

	if _, err := NewResponseMessage(nil); err != ErrResponseWithoutParent {
		t.Errorf("Expected error %v, got %v", ErrResponseWithoutParent, err)
	}
}

func TestResponseStatusOrdinals(t *testing.T) {
	t.Parallel()

	// Persisted values; changing them breaks stored rows.
	cases := map[ResponseStatus]int{
		ResponseStatusNone:       0,
		ResponseStatusGenerating: 1,
		ResponseStatusCompleted:  2,
		ResponseStatusErrored:    3,
	}
	for status, want := range cases {
		if int(status) != want {
			t.Errorf("Expected %s to encode as %d, got %d", status, want, int(status))
		}
	}
	if ResponseStatus(4).Valid() {
		t.Error("Expected 4 to be invalid")
	}
}
