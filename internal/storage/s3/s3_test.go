package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/tenant"
)

// fakeS3 keeps objects in memory keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength == nil || *in.ContentLength != int64(len(data)) {
		return nil, errors.New("content length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestUploadReadDelete(t *testing.T) {
	fake := newFakeS3()
	b := newWithClient(fake, "bucket")
	ctx := tenant.WithTenant(context.Background(), "acme")

	// A plain io.Reader forces the spool path.
	payload := strings.Repeat("attachment-bytes-", 64)
	if err := b.Upload(ctx, io.MultiReader(strings.NewReader(payload)), "doc-1", "text/plain"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, ok := fake.objects["acme/doc-1/content.bin"]; !ok {
		t.Fatalf("expected key acme/doc-1/content.bin, have %v", fake.objects)
	}
	if got := fake.types["acme/doc-1/content.bin"]; got != "text/plain" {
		t.Errorf("content type = %q", got)
	}

	rc, err := b.Read(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != payload {
		t.Fatal("round trip mismatch")
	}

	if err := b.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete(ctx, "doc-1"); !errors.Is(err, attachment.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	if _, err := b.Read(ctx, "doc-1"); !errors.Is(err, attachment.ErrNotFound) {
		t.Errorf("read after delete: expected ErrNotFound, got %v", err)
	}
}

func TestUploadFailureIsStorageIO(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	b := newWithClient(fake, "bucket")

	err := b.Upload(context.Background(), bytes.NewReader([]byte("x")), "doc", "")
	if !errors.Is(err, attachment.ErrStorageIO) {
		t.Fatalf("expected ErrStorageIO, got %v", err)
	}
}

func TestRestoreUnsupported(t *testing.T) {
	b := newWithClient(newFakeS3(), "bucket")
	if err := b.Restore(context.Background(), "doc"); !errors.Is(err, attachment.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestSizedUsesKnownLength(t *testing.T) {
	r := bytes.NewReader([]byte("hello"))
	body, n, cleanup, err := sized(r)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if n != 5 || body != io.ReadSeeker(r) {
		t.Errorf("expected reader to be used directly with length 5, got %d", n)
	}
}
