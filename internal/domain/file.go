package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for File
var (
	ErrEmptyFileID      = invalid("file ID cannot be empty")
	ErrEmptyFileSpaceID = invalid("file space ID cannot be empty")
	ErrEmptyFilePath    = invalid("file path cannot be empty")
	ErrNegativeFileSize = invalid("file size cannot be negative")
)

// supportedExtensions lists the extensions the ingestion service can load.
var supportedExtensions = map[string]struct{}{
	"csv":  {},
	"doc":  {},
	"docx": {},
	"enex": {},
	"epub": {},
	"html": {},
	"md":   {},
	"odt":  {},
	"pdf":  {},
	"ppt":  {},
	"pptx": {},
	"txt":  {},
}

// IsSupportedExtension reports whether files with the given extension
// (without the leading dot, any case) can be ingested.
func IsSupportedExtension(ext string) bool {
	_, ok := supportedExtensions[strings.ToLower(ext)]
	return ok
}

// File represents an uploaded artifact stored under a space directory.
type File struct {
	ID        uuid.UUID `json:"id"`
	SpaceID   uuid.UUID `json:"space_id"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	Supported bool      `json:"supported"`
	Learned   bool      `json:"learned"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFile creates a File for the relative storage path rel. The name and
// extension are derived from the last path element; the supported flag
// follows the extension.
func NewFile(spaceID uuid.UUID, rel string) (*File, error) {
	clean, err := CleanRelativePath(rel)
	if err != nil {
		return nil, err
	}

	base := path.Base(clean)
	ext := strings.TrimPrefix(path.Ext(base), ".")
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		name = base
	}

	now := time.Now().UTC()
	file := &File{
		ID:        uuid.New(),
		SpaceID:   spaceID,
		Path:      clean,
		Name:      name,
		Extension: ext,
		Supported: IsSupportedExtension(ext),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return file, nil
}

// Validate checks if the File has valid data.
func (f *File) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyFileID
	}
	if f.SpaceID == uuid.Nil {
		return ErrEmptyFileSpaceID
	}
	if f.Path == "" {
		return ErrEmptyFilePath
	}
	if f.Size < 0 {
		return ErrNegativeFileSize
	}
	return nil
}

// CleanRelativePath normalizes a slash-separated storage path and rejects
// anything that would resolve outside the space directory.
func CleanRelativePath(rel string) (string, error) {
	rel = strings.TrimSpace(strings.ReplaceAll(rel, "\\", "/"))
	if rel == "" {
		return "", ErrEmptyFilePath
	}

	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}

	clean := strings.TrimPrefix(path.Clean("/"+rel), "/")
	if clean == "" {
		return "", ErrEmptyFilePath
	}
	return clean, nil
}
