package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the storage key does not resolve to a stored object.
var ErrNotFound = errors.New("object not found")

// ObjectStore abstracts original-file storage for uploaded documents.
type ObjectStore interface {
	// Save persists the reader under the user's namespace with a randomized
	// prefix and returns the storage key, byte size and sniffed MIME type.
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, string, error)
	// Open opens a stored object for reading.
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Delete removes a stored object.
	Delete(ctx context.Context, storageKey string) error
	// Path resolves a storage key to a local filesystem path for tools that
	// operate on files directly (OCR subprocesses).
	Path(storageKey string) (string, error)
	// Exists reports whether a stored object is still present.
	Exists(ctx context.Context, storageKey string) bool
}
