package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/binding"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/storage/azure"
	"github.com/fruitsalade/attachments/internal/storage/gcs"
	"github.com/fruitsalade/attachments/internal/storage/local"
	"github.com/fruitsalade/attachments/internal/storage/mock"
	s3backend "github.com/fruitsalade/attachments/internal/storage/s3"
)

// Open selects and constructs the storage backend for the given bindings.
// It never fails: selection warnings and construction errors are logged and
// the mock backend is returned instead.
func Open(ctx context.Context, bindings []binding.Binding) (Backend, Selection) {
	sel := Select(bindings)
	if sel.Warning != "" {
		logging.Warn("storage backend selection", zap.String("warning", sel.Warning))
	}

	backend, err := NewBackend(ctx, sel.Kind, sel.Binding)
	if err != nil {
		logging.Warn("storage backend init failed, using mock storage backend",
			zap.String("kind", string(sel.Kind)),
			zap.String("binding", sel.Binding.Name),
			zap.Error(err))
		sel = Selection{
			Kind:    KindMock,
			Binding: sel.Binding,
			Warning: fmt.Sprintf("%s backend init failed: %v", sel.Kind, err),
		}
		backend = mock.New()
	}

	metrics.SetSelectedBackend(string(sel.Kind))
	logging.Info("storage backend selected",
		zap.String("kind", string(sel.Kind)),
		zap.String("binding", sel.Binding.Name))
	return backend, sel
}

// NewBackend creates a Backend of the given kind from binding credentials.
func NewBackend(ctx context.Context, kind Kind, b binding.Binding) (Backend, error) {
	switch kind {
	case KindS3:
		endpoint := b.String("uri")
		if endpoint == "" && b.Has(credHost) {
			endpoint = "https://" + strings.TrimPrefix(b.String(credHost), "https://")
		}
		pathStyle, _ := strconv.ParseBool(b.String("path_style"))
		return s3backend.NewBackend(ctx, s3backend.BackendConfig{
			Endpoint:  endpoint,
			Bucket:    b.String("bucket"),
			AccessKey: b.String("access_key_id"),
			SecretKey: b.String("secret_access_key"),
			Region:    b.String("region"),
			PathStyle: pathStyle,
		})
	case KindAzure:
		return azure.New(azure.Config{
			ContainerURI: b.String(credContainerURI),
			SASToken:     b.String("sas_token"),
		})
	case KindGCS:
		return gcs.New(ctx, gcs.Config{
			Bucket:         b.String("bucket"),
			ProjectID:      b.String("projectId"),
			PrivateKeyData: b.String(credGCPPrivateKey),
		})
	case KindFilesystem:
		createDirs, _ := strconv.ParseBool(b.String("create_dirs"))
		return local.New(local.Config{
			RootPath:   b.String(credFilesystemRoot),
			CreateDirs: createDirs,
		})
	case KindMock:
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend kind: %s", kind)
	}
}
