package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// DB holds every record of the in-process store behind one lock, so
// multi-record updates are atomic the way a transaction would make them.
type DB struct {
	mu       sync.RWMutex
	spaces   map[uuid.UUID]domain.Space
	files    map[uuid.UUID]domain.File
	messages map[uuid.UUID]domain.Message
	tasks    map[uuid.UUID]domain.Task
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		spaces:   make(map[uuid.UUID]domain.Space),
		files:    make(map[uuid.UUID]domain.File),
		messages: make(map[uuid.UUID]domain.Message),
		tasks:    make(map[uuid.UUID]domain.Task),
	}
}

// Spaces returns the SpaceStore view of db.
func (db *DB) Spaces() *SpaceStore { return &SpaceStore{db: db} }

// Files returns the FileStore view of db.
func (db *DB) Files() *FileStore { return &FileStore{db: db} }

// Messages returns the MessageStore view of db.
func (db *DB) Messages() *MessageStore { return &MessageStore{db: db} }

// Tasks returns the TaskStore view of db.
func (db *DB) Tasks() *TaskStore { return &TaskStore{db: db} }

// Records are stored by value and every pointer handed out is a fresh
// copy, so callers never share memory with the store.

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyMessage(m domain.Message) *domain.Message {
	m.UserMessageID = cloneUUID(m.UserMessageID)
	m.ResponseID = cloneUUID(m.ResponseID)
	if m.FinalizedAt != nil {
		t := *m.FinalizedAt
		m.FinalizedAt = &t
	}
	return &m
}

func copyTask(t domain.Task) *domain.Task {
	t.FileID = cloneUUID(t.FileID)
	t.MessageID = cloneUUID(t.MessageID)
	return &t
}

func copyFile(f domain.File) *domain.File { return &f }

func copySpace(s domain.Space) *domain.Space { return &s }
