package mock

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/tenant"
)

func TestRoundTripAndSoftDelete(t *testing.T) {
	b := New()
	ctx := context.Background()
	content := []byte("byte-identical?")

	if err := b.Upload(ctx, bytes.NewReader(content), "x", "text/plain"); err != nil {
		t.Fatal(err)
	}
	rc, err := b.Read(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, content) {
		t.Fatalf("got %q, want %q", got, content)
	}

	if err := b.Delete(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if b.Exists(ctx, "x") {
		t.Fatal("expected content to be gone after delete")
	}
	if err := b.Delete(ctx, "x"); !errors.Is(err, attachment.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := b.Restore(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if !b.Exists(ctx, "x") {
		t.Fatal("expected content after restore")
	}
}

func TestTenantsAreIsolated(t *testing.T) {
	b := New()
	a := tenant.WithTenant(context.Background(), "a")
	other := tenant.WithTenant(context.Background(), "b")

	if err := b.Upload(a, bytes.NewReader([]byte("1")), "doc", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read(other, "doc"); !errors.Is(err, attachment.ErrNotFound) {
		t.Fatalf("tenant b must not see tenant a content, got %v", err)
	}
	if b.Calls("upload") != 1 || b.Calls("read") != 1 {
		t.Errorf("unexpected call counts: upload=%d read=%d", b.Calls("upload"), b.Calls("read"))
	}
}
