// Package space describes where a tenant's files and vector index live on
// disk.
package space

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// vectorDBDir is the name of the per-space vector index directory.
const vectorDBDir = "vector_db"

// Layout roots every space directory under one base directory.
type Layout struct {
	root string
}

// NewLayout returns a Layout rooted at root. The path is made absolute so
// paths handed to external services do not depend on their working
// directory.
func NewLayout(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve spaces directory %q: %w", root, err)
	}
	return Layout{root: abs}, nil
}

// Root returns the absolute base directory.
func (l Layout) Root() string {
	return l.root
}

// For returns the Space handle for id.
func (l Layout) For(id uuid.UUID) Space {
	return Space{ID: id, Dir: filepath.Join(l.root, id.String())}
}

// Ensure creates the directory of space id if it does not exist yet.
func (l Layout) Ensure(id uuid.UUID) (Space, error) {
	sp := l.For(id)
	if err := os.MkdirAll(sp.Dir, 0o755); err != nil {
		return Space{}, fmt.Errorf("failed to create space directory: %w", err)
	}
	return sp, nil
}

// Space is the tenant handle passed through every task phase.
type Space struct {
	ID  uuid.UUID
	Dir string
}

// VectorDBPath returns <spaces_dir>/<space_id>/vector_db.
func (s Space) VectorDBPath() string {
	return filepath.Join(s.Dir, vectorDBDir)
}

// FilePath resolves a relative storage path to an absolute path inside the
// space directory. Paths inside the vector index directory are rejected
// with domain.ErrInvalidPath.
func (s Space) FilePath(rel string) (string, error) {
	clean, err := domain.CleanRelativePath(rel)
	if err != nil {
		return "", err
	}
	if first, _, _ := strings.Cut(clean, "/"); first == vectorDBDir {
		return "", fmt.Errorf("%w: %s is reserved", domain.ErrInvalidPath, vectorDBDir)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(clean)), nil
}
