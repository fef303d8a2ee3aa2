package proof

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("proof not found")

// Store keeps payment proof images. Refs are opaque keys returned by Put.
type Store interface {
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ctx context.Context, ref string) (string, error)
}

// BulkDeleter releases many proofs at once, e.g. when a group is deleted.
type BulkDeleter interface {
	DeleteMany(ctx context.Context, refs []string) error
}
