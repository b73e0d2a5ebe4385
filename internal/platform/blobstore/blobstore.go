// Package blobstore provides file storage for report uploads and patient
// attachments. It defines the FileStore interface the workflow layer depends
// on and an in-memory implementation used in development and tests.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrMissingFileName     = errors.New("file name is required")
)

// Descriptor is the persisted record of a stored file. The workflow layer
// treats stored files as opaque and only keeps this descriptor.
type Descriptor struct {
	URL              string    `json:"url"`
	StorageID        string    `json:"storageId"`
	OriginalFilename string    `json:"originalFilename"`
	Size             int64     `json:"size"`
	Folder           string    `json:"folder"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

// FileStore stores and retrieves opaque file content.
type FileStore interface {
	Store(ctx context.Context, content []byte, filename, folder string, allowedExtensions []string) (*Descriptor, error)
	Get(ctx context.Context, storageID string) ([]byte, *Descriptor, error)
	Delete(ctx context.Context, storageID string) error
}

// MemoryStore is an in-memory FileStore. Content is lost on restart; use it
// for development and tests only.
type MemoryStore struct {
	mu       sync.RWMutex
	maxSize  int64
	baseURL  string
	files    map[string][]byte
	metadata map[string]*Descriptor
}

// NewMemoryStore creates a MemoryStore that rejects files larger than
// maxSize bytes and builds URLs under baseURL.
func NewMemoryStore(maxSize int64, baseURL string) *MemoryStore {
	return &MemoryStore{
		maxSize:  maxSize,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		files:    make(map[string][]byte),
		metadata: make(map[string]*Descriptor),
	}
}

// Store validates and stores content, returning its descriptor.
func (s *MemoryStore) Store(_ context.Context, content []byte, filename, folder string, allowedExtensions []string) (*Descriptor, error) {
	if filename == "" {
		return nil, ErrMissingFileName
	}
	if int64(len(content)) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(content), s.maxSize)
	}
	if len(allowedExtensions) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
		allowed := false
		for _, a := range allowedExtensions {
			if ext == strings.ToLower(strings.TrimPrefix(a, ".")) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: .%s", ErrExtensionNotAllowed, ext)
		}
	}

	id := uuid.New().String()
	desc := &Descriptor{
		URL:              fmt.Sprintf("%s/%s/%s", s.baseURL, folder, id),
		StorageID:        id,
		OriginalFilename: filename,
		Size:             int64(len(content)),
		Folder:           folder,
		UploadedAt:       time.Now().UTC(),
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	s.mu.Lock()
	s.files[id] = stored
	s.metadata[id] = desc
	s.mu.Unlock()

	return desc, nil
}

// Get returns the content and descriptor for a stored file.
func (s *MemoryStore) Get(_ context.Context, storageID string) ([]byte, *Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.files[storageID]
	if !ok {
		return nil, nil, ErrFileNotFound
	}
	return content, s.metadata[storageID], nil
}

// Delete removes a stored file. Deleting an unknown id is an error.
func (s *MemoryStore) Delete(_ context.Context, storageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[storageID]; !ok {
		return ErrFileNotFound
	}
	delete(s.files, storageID)
	delete(s.metadata, storageID)
	return nil
}
