package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

// MessageStore implements store.MessageStore.
type MessageStore struct {
	db *DB
}

var _ store.MessageStore = (*MessageStore)(nil)

// Create inserts a message.
func (s *MessageStore) Create(ctx context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.insert(msg)
}

// CreateResponse inserts a response message and points its user message
// at it.
func (s *MessageStore) CreateResponse(ctx context.Context, response *domain.Message) error {
	if err := response.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	user, ok := s.db.messages[*response.UserMessageID]
	if !ok {
		return store.ErrMessageNotFound
	}
	if err := s.insert(response); err != nil {
		return err
	}

	id := response.ID
	user.ResponseID = &id
	s.db.messages[user.ID] = user
	return nil
}

// GetByID returns the message with id.
func (s *MessageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	msg, ok := s.db.messages[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	return copyMessage(msg), nil
}

// FinalizeExchange writes text into the response, sets status on both
// messages and stamps their finalization time.
func (s *MessageStore) FinalizeExchange(
	ctx context.Context,
	userMessageID, responseID uuid.UUID,
	text string,
	status domain.ResponseStatus,
) (*domain.Message, *domain.Message, error) {
	if !status.Valid() {
		return nil, nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidResponseStatus)
	}
	if text == "" {
		return nil, nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyMessageText)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	user, ok := s.db.messages[userMessageID]
	if !ok {
		return nil, nil, store.ErrMessageNotFound
	}
	response, ok := s.db.messages[responseID]
	if !ok {
		return nil, nil, store.ErrMessageNotFound
	}

	now := time.Now().UTC()
	user.ResponseStatus = status
	user.FinalizedAt = &now
	response.Text = text
	response.ResponseStatus = status
	response.FinalizedAt = &now

	s.db.messages[user.ID] = user
	s.db.messages[response.ID] = response
	return copyMessage(user), copyMessage(response), nil
}

// ListBySpace returns up to limit messages created before the cursor,
// newest first. A zero cursor means no bound.
func (s *MessageStore) ListBySpace(
	ctx context.Context,
	spaceID uuid.UUID,
	before time.Time,
	limit int,
) ([]*domain.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	msgs := make([]*domain.Message, 0)
	for _, msg := range s.db.messages {
		if msg.SpaceID != spaceID {
			continue
		}
		if !before.IsZero() && !msg.CreatedAt.Before(before) {
			continue
		}
		msgs = append(msgs, copyMessage(msg))
	}
	sortNewestFirst(msgs)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// ListCompletedExchanges returns up to limit user messages whose response
// completed, newest first, each with its response text.
func (s *MessageStore) ListCompletedExchanges(
	ctx context.Context,
	spaceID uuid.UUID,
	limit int,
) ([]domain.Exchange, error) {
	if limit <= 0 {
		return []domain.Exchange{}, nil
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	users := make([]*domain.Message, 0)
	for _, msg := range s.db.messages {
		if msg.SpaceID == spaceID && msg.IsUserMessage &&
			msg.ResponseStatus == domain.ResponseStatusCompleted && msg.ResponseID != nil {
			users = append(users, copyMessage(msg))
		}
	}
	sortNewestFirst(users)

	exchanges := make([]domain.Exchange, 0, len(users))
	for _, user := range users {
		if len(exchanges) == limit {
			break
		}
		response, ok := s.db.messages[*user.ResponseID]
		if !ok {
			continue
		}
		exchanges = append(exchanges, domain.Exchange{UserMessage: user, ResponseText: response.Text})
	}
	return exchanges, nil
}

// insert requires the write lock.
func (s *MessageStore) insert(msg *domain.Message) error {
	if _, ok := s.db.spaces[msg.SpaceID]; !ok {
		return store.ErrSpaceNotFound
	}
	if _, ok := s.db.messages[msg.ID]; ok {
		return store.ErrDuplicate
	}
	s.db.messages[msg.ID] = *copyMessage(*msg)
	return nil
}

func sortNewestFirst(msgs []*domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
}
