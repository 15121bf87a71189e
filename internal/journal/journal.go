// Package journal records uploads whose host transaction has not finished yet,
// so content orphaned by a crash can be found and removed later.
package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// PendingUpload is content written to storage before its transaction ended.
type PendingUpload struct {
	DocumentID string
	Tenant     string
	CreatedAt  time.Time
}

// Journal persists pending uploads.
type Journal interface {
	// Record adds or refreshes a pending upload.
	Record(ctx context.Context, p PendingUpload) error
	// Resolve forgets a pending upload. Unknown entries are ignored.
	Resolve(ctx context.Context, tenant, documentID string) error
	// Expired lists pending uploads created before cutoff, oldest first.
	Expired(ctx context.Context, cutoff time.Time) ([]PendingUpload, error)
}

// Memory is an in-process Journal. It does not survive restarts.
type Memory struct {
	mu      sync.Mutex
	entries map[key]PendingUpload
}

type key struct {
	tenant, documentID string
}

// NewMemory creates an empty Memory journal.
func NewMemory() *Memory {
	return &Memory{entries: make(map[key]PendingUpload)}
}

// Record implements Journal.
func (m *Memory) Record(_ context.Context, p PendingUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key{p.Tenant, p.DocumentID}] = p
	return nil
}

// Resolve implements Journal.
func (m *Memory) Resolve(_ context.Context, tenant, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key{tenant, documentID})
	return nil
}

// Expired implements Journal.
func (m *Memory) Expired(_ context.Context, cutoff time.Time) ([]PendingUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PendingUpload
	for _, p := range m.entries {
		if p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Len returns the number of pending uploads.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
