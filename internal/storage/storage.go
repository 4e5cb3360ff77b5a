// Package storage defines the interface for remote object storage operations.
// Swap implementations by changing the concrete type injected at startup:
// Dropbox is the default, MinIO covers any S3-compatible provider, and the
// in-memory store serves local development and tests.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNoContent is returned when the provider answered a download without
// the object's content or metadata.
var ErrNoContent = errors.New("storage: object has no content")

// Object is a streaming handle to a remote object's bytes.
// The caller MUST close Body.
type Object struct {
	// Name is the object's name as reported by the provider.
	Name string
	// Size is the byte count, -1 if unknown.
	Size int64
	Body io.ReadCloser
}

// Storage is the interface for uploading and retrieving objects.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Download opens the object identified by key.
	Download(ctx context.Context, key string) (*Object, error)
}
