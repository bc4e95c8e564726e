package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound distinguishes a missing blob from other storage failures.
// Callers deleting a file treat it as non-fatal.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the blob-store collaborator. MinIOClient is the production
// implementation; tests substitute an in-memory one.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectName string) error
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	EnsureBucket(ctx context.Context) error
}
