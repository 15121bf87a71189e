package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fruitsalade/attachments/internal/journal"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := New(dsn)
	if err != nil {
		t.Skipf("database not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestStoreLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	tenant := "test-" + uuid.NewString()
	old := time.Now().Add(-2 * time.Hour)

	p := journal.PendingUpload{DocumentID: uuid.NewString(), Tenant: tenant, CreatedAt: old}
	if err := s.Record(ctx, p); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, p); err != nil {
		t.Fatalf("Record twice: %v", err)
	}

	found := false
	expired, err := s.Expired(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Expired: %v", err)
	}
	for _, e := range expired {
		if e.Tenant == tenant && e.DocumentID == p.DocumentID {
			found = true
		}
	}
	if !found {
		t.Fatal("recorded upload not listed as expired")
	}

	if err := s.Resolve(ctx, tenant, p.DocumentID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	expired, err = s.Expired(ctx, time.Now())
	if err != nil {
		t.Fatalf("Expired: %v", err)
	}
	for _, e := range expired {
		if e.Tenant == tenant {
			t.Errorf("resolved upload still listed: %+v", e)
		}
	}
}
