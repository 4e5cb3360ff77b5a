package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/droprelay/service/internal/errs"
)

// MemoryStorage keeps objects in process memory. It is safe for concurrent use.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Upload stores a copy of reader's bytes under key, replacing any previous object.
func (s *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTransport, "upload cancelled", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read object %q: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

// Download returns the object stored under key.
func (s *MemoryStorage) Download(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "download cancelled", err)
	}

	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("object %q not found", key))
	}

	return &Object{
		Name: path.Base(key),
		Size: int64(len(data)),
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// Len returns the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
