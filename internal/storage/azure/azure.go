// Package azure provides an Azure Blob Storage backend bound to one
// container through a SAS token.
package azure

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/storage/layout"
	"github.com/fruitsalade/attachments/internal/tenant"
)

// Config holds the container binding.
type Config struct {
	ContainerURI string
	SASToken     string
}

// AzureBackend implements storage.Backend on a blob container.
type AzureBackend struct {
	client *container.Client
}

// New creates a backend for the configured container.
func New(cfg Config) (*AzureBackend, error) {
	u, err := containerURL(cfg)
	if err != nil {
		return nil, err
	}
	client, err := container.NewClientWithNoCredential(u, nil)
	if err != nil {
		return nil, fmt.Errorf("create container client: %w", err)
	}
	return &AzureBackend{client: client}, nil
}

// containerURL joins the container URI and SAS token into a signed URL.
func containerURL(cfg Config) (string, error) {
	uri := strings.TrimRight(strings.TrimSpace(cfg.ContainerURI), "/")
	if uri == "" {
		return "", fmt.Errorf("container_uri is required")
	}
	sas := strings.TrimPrefix(strings.TrimSpace(cfg.SASToken), "?")
	if sas == "" {
		return uri, nil
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + sas, nil
}

func (b *AzureBackend) key(ctx context.Context, id string) string {
	return layout.Key(tenant.FromContext(ctx), id)
}

// Upload streams content into a block blob, replacing any existing blob.
func (b *AzureBackend) Upload(ctx context.Context, content io.Reader, id, mimeType string) error {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	opts := &blockblob.UploadStreamOptions{}
	if mimeType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &mimeType}
	}

	if _, err := b.client.NewBlockBlobClient(b.key(ctx, id)).UploadStream(ctx, content, opts); err != nil {
		metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), false)
		return fmt.Errorf("upload blob %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), true)
	logging.WithContext(ctx).Debug("azure upload blob", zap.String("document_id", id))
	return nil
}

// Read opens a download stream for the blob.
func (b *AzureBackend) Read(ctx context.Context, id string) (io.ReadCloser, error) {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return nil, err
	}

	resp, err := b.client.NewBlobClient(b.key(ctx, id)).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), true)
			return nil, fmt.Errorf("download blob %s: %w", id, attachment.ErrNotFound)
		}
		metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), false)
		return nil, fmt.Errorf("download blob %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), true)
	return resp.Body, nil
}

// Delete removes the blob permanently.
func (b *AzureBackend) Delete(ctx context.Context, id string) error {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	if _, err := b.client.NewBlobClient(b.key(ctx, id)).Delete(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), true)
			return fmt.Errorf("delete blob %s: %w", id, attachment.ErrNotFound)
		}
		metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), false)
		return fmt.Errorf("delete blob %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), true)
	logging.WithContext(ctx).Debug("azure delete blob", zap.String("document_id", id))
	return nil
}

// Restore is not possible: blob deletes are permanent for SAS bindings.
func (b *AzureBackend) Restore(_ context.Context, id string) error {
	return fmt.Errorf("restore %s: %w", id, attachment.ErrUnsupported)
}

// Type returns "azure".
func (b *AzureBackend) Type() string { return "azure" }

// Close is a no-op for Azure backends.
func (b *AzureBackend) Close() error { return nil }
