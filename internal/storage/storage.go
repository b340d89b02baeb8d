package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// Blob abstracts small-object storage. Implementations handle the local
// filesystem or S3-compatible object storage (CEPH, MinIO, etc.).
type Blob interface {
	// Put stores data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the object at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
