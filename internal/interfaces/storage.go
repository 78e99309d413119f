package interfaces

import "context"

// BlobStore persists opaque artifacts (rendered plots) by key.
// Put must replace any existing blob atomically.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
