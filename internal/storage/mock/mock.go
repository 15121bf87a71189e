// Package mock provides an in-memory storage backend used when no credential
// binding selects a real one. It never touches disk or network.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/storage/layout"
	"github.com/fruitsalade/attachments/internal/tenant"
)

// Backend keeps content in memory. Deleted content is retained until purged,
// so Restore works like the filesystem backend.
type Backend struct {
	mu      sync.Mutex
	live    map[string][]byte
	deleted map[string][]byte
	calls   map[string]int
}

// New creates an empty mock backend.
func New() *Backend {
	return &Backend{
		live:    make(map[string][]byte),
		deleted: make(map[string][]byte),
		calls:   make(map[string]int),
	}
}

func key(ctx context.Context, id string) string {
	return layout.Key(tenant.FromContext(ctx), id)
}

// Upload stores a copy of content.
func (b *Backend) Upload(ctx context.Context, content io.Reader, id, _ string) error {
	if err := layout.Validate(tenant.FromContext(ctx), id); err != nil {
		return err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("read content for %s: %w: %w", id, attachment.ErrStorageIO, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["upload"]++
	k := key(ctx, id)
	b.live[k] = data
	delete(b.deleted, k)
	return nil
}

// Read returns the stored content.
func (b *Backend) Read(ctx context.Context, id string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["read"]++
	data, ok := b.live[key(ctx, id)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, attachment.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete moves content to the deleted set.
func (b *Backend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["delete"]++
	k := key(ctx, id)
	data, ok := b.live[k]
	if !ok {
		return fmt.Errorf("delete %s: %w", id, attachment.ErrNotFound)
	}
	delete(b.live, k)
	b.deleted[k] = data
	return nil
}

// Restore moves deleted content back. Live content is left untouched.
func (b *Backend) Restore(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["restore"]++
	k := key(ctx, id)
	if _, ok := b.live[k]; ok {
		return nil
	}
	data, ok := b.deleted[k]
	if !ok {
		return fmt.Errorf("restore %s: %w", id, attachment.ErrNotFound)
	}
	delete(b.deleted, k)
	b.live[k] = data
	return nil
}

// Purge drops deleted content for good.
func (b *Backend) Purge(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["purge"]++
	delete(b.deleted, key(ctx, id))
	return nil
}

// Exists reports whether live content is stored under id.
func (b *Backend) Exists(ctx context.Context, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[key(ctx, id)]
	return ok
}

// Calls returns how many times op was invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of backend operations invoked.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Type returns "mock".
func (b *Backend) Type() string { return "mock" }

// Close is a no-op.
func (b *Backend) Close() error { return nil }
