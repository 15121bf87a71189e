// Package local provides a local filesystem storage backend.
//
// Content lives at {root}/{tenant}/{id}/content.bin. Delete moves it to
// {root}/{tenant}/deleted/{id}/content.bin so Restore can bring it back.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/storage/layout"
	"github.com/fruitsalade/attachments/internal/tenant"
)

// Config holds local filesystem backend settings.
type Config struct {
	RootPath   string
	CreateDirs bool
}

// LocalBackend implements storage.Backend using the local filesystem.
type LocalBackend struct {
	rootPath string
}

// New creates a new local filesystem backend.
func New(cfg Config) (*LocalBackend, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root_path is required")
	}

	// Ensure root exists
	info, err := os.Stat(cfg.RootPath)
	if err != nil {
		if os.IsNotExist(err) && cfg.CreateDirs {
			if mkErr := os.MkdirAll(cfg.RootPath, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, mkErr)
			}
		} else {
			return nil, fmt.Errorf("stat root path %s: %w", cfg.RootPath, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}

	return &LocalBackend{rootPath: cfg.RootPath}, nil
}

func (b *LocalBackend) fullPath(key string) string {
	return filepath.Join(b.rootPath, filepath.FromSlash(key))
}

func (b *LocalBackend) activePath(ctx context.Context, id string) string {
	return b.fullPath(layout.Key(tenant.FromContext(ctx), id))
}

func (b *LocalBackend) deletedPath(ctx context.Context, id string) string {
	return b.fullPath(layout.DeletedKey(tenant.FromContext(ctx), id))
}

func (b *LocalBackend) record(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(b.Type(), op, time.Since(start), err == nil || errors.Is(err, attachment.ErrNotFound))
}

// Upload writes content atomically, replacing previous content under id.
func (b *LocalBackend) Upload(ctx context.Context, content io.Reader, id, mimeType string) (err error) {
	start := time.Now()
	defer func() { b.record("upload", start, err) }()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	path := b.activePath(ctx, id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	// Write to temp file then rename for atomicity
	tmp, err := os.CreateTemp(dir, ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	logging.WithContext(ctx).Debug("local upload",
		zap.String("document_id", id),
		zap.String("mime_type", mimeType),
		zap.Int64("size", n))
	return nil
}

// Read opens the live content stored under id.
func (b *LocalBackend) Read(ctx context.Context, id string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { b.record("read", start, err) }()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return nil, err
	}

	f, err := os.Open(b.activePath(ctx, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", id, attachment.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	return f, nil
}

// Delete moves content into the tenant's deleted area.
func (b *LocalBackend) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { b.record("delete", start, err) }()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}
	return b.move(id, b.activePath(ctx, id), b.deletedPath(ctx, id))
}

// Restore moves soft-deleted content back. Content that is already live is
// left untouched.
func (b *LocalBackend) Restore(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { b.record("restore", start, err) }()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	active := b.activePath(ctx, id)
	if _, err := os.Stat(active); err == nil {
		return nil
	}
	return b.move(id, b.deletedPath(ctx, id), active)
}

func (b *LocalBackend) move(id, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("move %s: %w", id, attachment.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	// Best effort: drop the now empty per-id directory.
	os.Remove(filepath.Dir(src))
	return nil
}

// Purge permanently removes soft-deleted content.
func (b *LocalBackend) Purge(ctx context.Context, id string) error {
	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}
	dir := filepath.Dir(b.deletedPath(ctx, id))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	return nil
}

// Type returns "local".
func (b *LocalBackend) Type() string { return "local" }

// Close is a no-op for local backends.
func (b *LocalBackend) Close() error { return nil }
