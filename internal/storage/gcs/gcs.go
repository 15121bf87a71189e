// Package gcs provides a Google Cloud Storage backend.
package gcs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/storage/layout"
	"github.com/fruitsalade/attachments/internal/tenant"
)

// Config holds the bucket binding. PrivateKeyData is the base64 encoded
// service account key JSON as delivered in the binding.
type Config struct {
	Bucket         string
	ProjectID      string
	PrivateKeyData string
}

// GCSBackend implements storage.Backend on a GCS bucket.
type GCSBackend struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// New creates a backend for the configured bucket.
func New(ctx context.Context, cfg Config) (*GCSBackend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	key, err := decodeKey(cfg.PrivateKeyData)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(key))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSBackend{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

func decodeKey(data string) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("base64EncodedPrivateKeyData is required")
	}
	key, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode service account key: %w", err)
	}
	return key, nil
}

func (b *GCSBackend) object(ctx context.Context, id string) *storage.ObjectHandle {
	return b.bucket.Object(layout.Key(tenant.FromContext(ctx), id))
}

// Upload writes content to the object, replacing any previous generation.
func (b *GCSBackend) Upload(ctx context.Context, content io.Reader, id, mimeType string) error {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	w := b.object(ctx, id).NewWriter(ctx)
	if mimeType != "" {
		w.ContentType = mimeType
	}

	n, err := io.Copy(w, content)
	if err != nil {
		w.Close()
		metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), false)
		return fmt.Errorf("write object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	// The object is committed on Close.
	if err := w.Close(); err != nil {
		metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), false)
		return fmt.Errorf("commit object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), true)
	logging.WithContext(ctx).Debug("gcs write object", zap.String("document_id", id), zap.Int64("size", n))
	return nil
}

// Read opens a reader on the object.
func (b *GCSBackend) Read(ctx context.Context, id string) (io.ReadCloser, error) {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return nil, err
	}

	r, err := b.object(ctx, id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), true)
			return nil, fmt.Errorf("read object %s: %w", id, attachment.ErrNotFound)
		}
		metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), false)
		return nil, fmt.Errorf("read object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), true)
	return r, nil
}

// Delete removes the object permanently.
func (b *GCSBackend) Delete(ctx context.Context, id string) error {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	if err := b.object(ctx, id).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), true)
			return fmt.Errorf("delete object %s: %w", id, attachment.ErrNotFound)
		}
		metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), false)
		return fmt.Errorf("delete object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), true)
	logging.WithContext(ctx).Debug("gcs delete object", zap.String("document_id", id))
	return nil
}

// Restore is not possible: object deletes are permanent.
func (b *GCSBackend) Restore(_ context.Context, id string) error {
	return fmt.Errorf("restore %s: %w", id, attachment.ErrUnsupported)
}

// Type returns "gcs".
func (b *GCSBackend) Type() string { return "gcs" }

// Close releases the GCS client.
func (b *GCSBackend) Close() error { return b.client.Close() }
