// Package storage defines the Backend interface for attachment content and
// selects the concrete backend from credential bindings at startup.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/fruitsalade/attachments/internal/attachment"
)

// Backend is the interface for attachment content storage.
// Implementations handle raw content I/O (local filesystem, S3, Azure Blob,
// Google Cloud Storage, in-memory mock). The tenant is taken from ctx.
type Backend interface {
	// Upload stores content under id, overwriting any previous content with
	// the same id. The reader is fully consumed before Upload returns.
	Upload(ctx context.Context, content io.Reader, id, mimeType string) error

	// Read opens the content stored under id. Returns attachment.ErrNotFound
	// if id is unknown. The caller must close the returned reader.
	Read(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete removes or soft-deletes the content under id. Returns
	// attachment.ErrNotFound if nothing is stored under id.
	Delete(ctx context.Context, id string) error

	// Restore makes soft-deleted content readable again. Backends that hard
	// delete return attachment.ErrUnsupported.
	Restore(ctx context.Context, id string) error

	// Type returns the backend type identifier.
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// IgnoreNotFound returns nil for not-found errors so deletes can be idempotent.
func IgnoreNotFound(err error) error {
	if errors.Is(err, attachment.ErrNotFound) {
		return nil
	}
	return err
}

// Purger is implemented by backends that retain deleted content and can
// remove it permanently.
type Purger interface {
	Purge(ctx context.Context, id string) error
}
