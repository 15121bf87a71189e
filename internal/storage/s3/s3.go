// Package s3 provides an AWS S3 (or S3-compatible) storage backend.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/storage/layout"
	"github.com/fruitsalade/attachments/internal/tenant"
)

// BackendConfig holds S3 connection settings.
type BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	PathStyle bool
}

// objectAPI is the subset of *s3.Client the backend uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Backend implements storage.Backend using S3.
type S3Backend struct {
	client objectAPI
	bucket string
}

// NewBackend creates a new S3 backend from a BackendConfig.
func NewBackend(ctx context.Context, cfg BackendConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	backend := newWithClient(client, cfg.Bucket)

	// Verify bucket is reachable
	if err := backend.checkBucket(ctx); err != nil {
		logging.Error("bucket check failed", zap.String("bucket", cfg.Bucket), zap.Error(err))
	}

	return backend, nil
}

func newWithClient(client objectAPI, bucket string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket}
}

func (b *S3Backend) checkBucket(ctx context.Context) error {
	start := time.Now()
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	metrics.RecordStorageOperation(b.Type(), "head_bucket", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("bucket %s not reachable: %w", b.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (b *S3Backend) key(ctx context.Context, id string) string {
	return layout.Key(tenant.FromContext(ctx), id)
}

// Upload stores content under id. Non-seekable readers are spooled to a
// temporary file first so the request carries a content length.
func (b *S3Backend) Upload(ctx context.Context, content io.Reader, id, mimeType string) error {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}

	body, size, cleanup, err := sized(content)
	if err != nil {
		metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), false)
		return fmt.Errorf("spool %s: %w: %w", id, attachment.ErrStorageIO, err)
	}
	defer cleanup()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(ctx, id)),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), false)
		return fmt.Errorf("put object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "upload", time.Since(start), true)
	logging.WithContext(ctx).Debug("S3 put object", zap.String("document_id", id), zap.Int64("size", size))
	return nil
}

// Read retrieves an object from S3.
func (b *S3Backend) Read(ctx context.Context, id string) (io.ReadCloser, error) {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return nil, err
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(ctx, id)),
	})
	if err != nil {
		if isNotFound(err) {
			metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), true)
			return nil, fmt.Errorf("get object %s: %w", id, attachment.ErrNotFound)
		}
		metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), false)
		return nil, fmt.Errorf("get object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "read", time.Since(start), true)
	return result.Body, nil
}

// Delete removes an object from S3. S3 deletes are idempotent, so the object
// is probed first to report ErrNotFound for absent content.
func (b *S3Backend) Delete(ctx context.Context, id string) error {
	start := time.Now()

	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}
	key := b.key(ctx, id)

	if _, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), true)
			return fmt.Errorf("delete object %s: %w", id, attachment.ErrNotFound)
		}
		metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), false)
		return fmt.Errorf("head object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), false)
		return fmt.Errorf("delete object %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	metrics.RecordStorageOperation(b.Type(), "delete", time.Since(start), true)
	logging.WithContext(ctx).Debug("S3 delete object", zap.String("document_id", id))
	return nil
}

// Restore is not possible: S3 deletes are permanent.
func (b *S3Backend) Restore(_ context.Context, id string) error {
	return fmt.Errorf("restore %s: %w", id, attachment.ErrUnsupported)
}

// Type returns "s3".
func (b *S3Backend) Type() string { return "s3" }

// Close is a no-op for S3 backends.
func (b *S3Backend) Close() error { return nil }
