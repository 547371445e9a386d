package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Space
var (
	ErrEmptySpaceID      = invalid("space ID cannot be empty")
	ErrEmptySpaceOwnerID = invalid("space owner ID cannot be empty")
	ErrEmptySpaceName    = invalid("space name cannot be empty")
)

// Space is the tenant boundary. Files, messages and tasks always belong to
// exactly one space.
type Space struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSpace creates a new Space owned by ownerID.
func NewSpace(ownerID uuid.UUID, name string) (*Space, error) {
	now := time.Now().UTC()
	space := &Space{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := space.Validate(); err != nil {
		return nil, err
	}

	return space, nil
}

// Validate checks if the Space has valid data.
func (s *Space) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySpaceID
	}
	if s.OwnerID == uuid.Nil {
		return ErrEmptySpaceOwnerID
	}
	if s.Name == "" {
		return ErrEmptySpaceName
	}
	return nil
}
