package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fruitsalade/attachments/internal/binding"
)

func bind(name string, creds map[string]any) binding.Binding {
	return binding.Binding{Name: name, Credentials: creds}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		creds map[string]any
		want  Kind
	}{
		{"aws host", map[string]any{"host": "s3-eu-central-1.amazonaws.com", "bucket": "b"}, KindS3},
		{"azure uri", map[string]any{"container_uri": "https://acct.blob.core.windows.net/c", "sas_token": "s"}, KindAzure},
		{"azure named uri", map[string]any{"container_uri": "https://azure-acct.example/c"}, KindAzure},
		{"gcp key", map[string]any{"base64EncodedPrivateKeyData": "e30=", "bucket": "b"}, KindGCS},
		{"filesystem", map[string]any{"root_path": "/data"}, KindFilesystem},
		{"empty", map[string]any{}, KindMock},
		{"nil creds", nil, KindMock},
		{"unknown host", map[string]any{"host": "minio.internal"}, KindMock},
		{"unknown uri", map[string]any{"container_uri": "https://files.example.com/c"}, KindMock},
	}

	for _, tt := range tests {
		if got := Classify(bind(tt.name, tt.creds)); got != tt.want {
			t.Errorf("%s: Classify = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestClassifyOrder(t *testing.T) {
	// A binding satisfying several markers resolves by check order:
	// host, then URI, then keys.
	tests := []struct {
		creds map[string]any
		want  Kind
	}{
		{map[string]any{"host": "s3.amazonaws.com", "container_uri": "https://azure.example/c", "base64EncodedPrivateKeyData": "k"}, KindS3},
		{map[string]any{"container_uri": "https://azure.example/c", "base64EncodedPrivateKeyData": "k", "root_path": "/x"}, KindAzure},
		{map[string]any{"base64EncodedPrivateKeyData": "k", "root_path": "/x"}, KindGCS},
	}

	for i, tt := range tests {
		if got := Classify(bind("b", tt.creds)); got != tt.want {
			t.Errorf("case %d: Classify = %s, want %s", i, got, tt.want)
		}
	}
}

func TestSelect(t *testing.T) {
	sel := Select(nil)
	if sel.Kind != KindMock || sel.Warning == "" {
		t.Errorf("no bindings: got %+v, want mock with warning", sel)
	}

	sel = Select([]binding.Binding{bind("x", map[string]any{"foo": "bar"})})
	if sel.Kind != KindMock || sel.Warning == "" {
		t.Errorf("no match: got %+v, want mock with warning", sel)
	}

	sel = Select([]binding.Binding{
		bind("junk", map[string]any{"foo": "bar"}),
		bind("disk", map[string]any{"root_path": "/data"}),
		bind("s3", map[string]any{"host": "s3.amazonaws.com"}),
	})
	if sel.Kind != KindFilesystem || sel.Binding.Name != "disk" {
		t.Errorf("expected first matching binding, got %+v", sel)
	}
	if sel.Warning != "" {
		t.Errorf("unexpected warning: %s", sel.Warning)
	}
}

func TestOpenFallsBackToMock(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	backend, sel := Open(context.Background(), []binding.Binding{
		bind("disk", map[string]any{"root_path": missing}),
	})
	if backend.Type() != "mock" || sel.Kind != KindMock {
		t.Fatalf("expected mock fallback, got %s / %+v", backend.Type(), sel)
	}
	if sel.Warning == "" {
		t.Error("expected a warning describing the failure")
	}
}

func TestOpenFilesystem(t *testing.T) {
	root := t.TempDir()
	backend, sel := Open(context.Background(), []binding.Binding{
		bind("disk", map[string]any{"root_path": root}),
	})
	defer backend.Close()
	if backend.Type() != "local" || sel.Kind != KindFilesystem {
		t.Fatalf("expected local backend, got %s", backend.Type())
	}
}

func TestOpenWithoutBindings(t *testing.T) {
	backend, sel := Open(context.Background(), nil)
	if backend.Type() != "mock" || sel.Kind != KindMock {
		t.Fatalf("expected mock backend, got %s", backend.Type())
	}
}
