// Package lifecycle runs the storage side of attachment create, update,
// delete, restore and read events, and undoes uploads whose host transaction
// rolls back.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/content"
	"github.com/fruitsalade/attachments/internal/gate"
	"github.com/fruitsalade/attachments/internal/journal"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/retry"
	"github.com/fruitsalade/attachments/internal/storage"
	"github.com/fruitsalade/attachments/internal/tenant"
)

const defaultCompensationTimeout = 30 * time.Second

// Coordinator dispatches lifecycle events to the storage backend.
type Coordinator struct {
	backend             storage.Backend
	gate                gate.Gate
	journal             journal.Journal
	newID               func() string
	now                 func() time.Time
	initialStatus       attachment.Status
	compensationTimeout time.Duration
	retry               retry.Config
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGate replaces the default status gate used by reads.
func WithGate(g gate.Gate) Option {
	return func(c *Coordinator) { c.gate = g }
}

// WithJournal records pending uploads so orphans survive a crash.
func WithJournal(j journal.Journal) Option {
	return func(c *Coordinator) { c.journal = j }
}

// WithIDGenerator replaces the random reference id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) { c.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(c *Coordinator) { c.now = fn }
}

// WithoutScanner marks new content NoScanner instead of Unscanned, for
// deployments that run no malware scanner.
func WithoutScanner() Option {
	return func(c *Coordinator) { c.initialStatus = attachment.StatusNoScanner }
}

// WithCompensationTimeout bounds each compensating delete.
func WithCompensationTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.compensationTimeout = d }
}

// WithRetry sets the retry policy of compensating and sweeping deletes.
func WithRetry(cfg retry.Config) Option {
	return func(c *Coordinator) { c.retry = cfg }
}

// NewCoordinator creates a Coordinator for backend.
func NewCoordinator(backend storage.Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend:             backend,
		gate:                gate.New(),
		newID:               uuid.NewString,
		now:                 time.Now,
		initialStatus:       attachment.StatusUnscanned,
		compensationTimeout: defaultCompensationTimeout,
		retry:               retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the storage backend.
func (c *Coordinator) Backend() storage.Backend { return c.backend }

func (c *Coordinator) scope(ctx context.Context, ev *EventContext) context.Context {
	if ev.Tenant == "" {
		ev.Tenant = tenant.FromContext(ctx)
	}
	return logging.WithTenant(ctx, ev.Tenant)
}

func eventFields(ev *EventContext) []zap.Field {
	return []zap.Field{
		zap.String("entity", ev.Entity),
		zap.String("document_id", ev.DocumentID),
		zap.String("content_id", ev.ContentID),
	}
}

// OnCreate stores new content under a fresh reference id. On success the
// event carries the id, the initial status and the stored size. If the event
// has a transaction, the upload is deleted again when it rolls back.
func (c *Coordinator) OnCreate(ctx context.Context, ev *EventContext) error {
	ctx = c.scope(ctx, ev)
	if ev.Content == nil {
		ev.SetCompleted()
		return nil
	}

	id := c.newID()
	if err := c.upload(ctx, ev, id); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}

	ev.DocumentID = id
	ev.Status = c.initialStatus
	c.track(ctx, ev)
	logging.WithContext(ctx).Debug("attachment content created",
		append(eventFields(ev), zap.Int64("size", ev.Size))...)
	ev.SetCompleted()
	return nil
}

// OnUpdate replaces the content of an attachment. Nil content clears it.
// Without an existing reference id the update behaves like a create.
//
// Replacement overwrites the bytes under the existing reference id and is
// not compensated: if the transaction rolls back, the record keeps its id
// and reads return the new bytes.
func (c *Coordinator) OnUpdate(ctx context.Context, ev *EventContext) error {
	if ev.Content == nil {
		return c.OnDeleteContent(ctx, ev)
	}
	if ev.DocumentID == "" {
		return c.OnCreate(ctx, ev)
	}

	ctx = c.scope(ctx, ev)
	if err := c.upload(ctx, ev, ev.DocumentID); err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	ev.Status = c.initialStatus
	logging.WithContext(ctx).Debug("attachment content replaced",
		append(eventFields(ev), zap.Int64("size", ev.Size))...)
	ev.SetCompleted()
	return nil
}

// OnDeleteContent removes the stored content and clears the reference id.
// An event without a reference id is completed without touching storage.
// Inside a transaction the id is cleared at once and the storage delete waits
// for the commit, so a rolled back clear keeps its content.
func (c *Coordinator) OnDeleteContent(ctx context.Context, ev *EventContext) error {
	ctx = c.scope(ctx, ev)
	if ev.DocumentID == "" {
		ev.SetCompleted()
		return nil
	}
	if ev.Tx != nil {
		ev.Tx.OnCompletion(c.deleteOnCommit(ev.Tenant, ev.DocumentID))
	} else {
		if err := storage.IgnoreNotFound(c.backend.Delete(ctx, ev.DocumentID)); err != nil {
			return fmt.Errorf("delete attachment content: %w", err)
		}
		logging.WithContext(ctx).Debug("attachment content deleted", eventFields(ev)...)
	}
	ev.DocumentID = ""
	ev.Size = 0
	ev.SetCompleted()
	return nil
}

// OnMarkDeleted soft-deletes the content of a deleted attachment. The
// reference id is kept so the content can be restored.
func (c *Coordinator) OnMarkDeleted(ctx context.Context, ev *EventContext) error {
	ctx = c.scope(ctx, ev)
	if ev.DocumentID == "" {
		ev.SetCompleted()
		return nil
	}
	if err := storage.IgnoreNotFound(c.backend.Delete(ctx, ev.DocumentID)); err != nil {
		return fmt.Errorf("mark attachment deleted: %w", err)
	}
	logging.WithContext(ctx).Debug("attachment content marked deleted", eventFields(ev)...)
	ev.SetCompleted()
	return nil
}

// OnRestore makes soft-deleted content readable again.
func (c *Coordinator) OnRestore(ctx context.Context, ev *EventContext) error {
	ctx = c.scope(ctx, ev)
	if ev.DocumentID == "" {
		ev.SetCompleted()
		return nil
	}
	if err := c.backend.Restore(ctx, ev.DocumentID); err != nil {
		return fmt.Errorf("restore attachment: %w", err)
	}
	logging.WithContext(ctx).Debug("attachment content restored", eventFields(ev)...)
	ev.SetCompleted()
	return nil
}

// OnPurge removes content permanently, including soft-deleted copies.
func (c *Coordinator) OnPurge(ctx context.Context, ev *EventContext) error {
	ctx = c.scope(ctx, ev)
	if ev.DocumentID == "" {
		ev.SetCompleted()
		return nil
	}
	if err := storage.IgnoreNotFound(c.backend.Delete(ctx, ev.DocumentID)); err != nil {
		return fmt.Errorf("purge attachment: %w", err)
	}
	if p, ok := c.backend.(storage.Purger); ok {
		if err := storage.IgnoreNotFound(p.Purge(ctx, ev.DocumentID)); err != nil {
			return fmt.Errorf("purge attachment: %w", err)
		}
	}
	ev.DocumentID = ""
	ev.SetCompleted()
	return nil
}

// OnRead returns a lazy stream over the stored content. Nothing is opened
// and the status is not checked until the stream is first read. An event
// without a reference id yields a nil stream.
func (c *Coordinator) OnRead(ctx context.Context, ev *EventContext) (*content.LazyStream, error) {
	ctx = c.scope(ctx, ev)
	ev.SetCompleted()
	if ev.DocumentID == "" {
		return nil, nil
	}
	id := ev.DocumentID
	open := func() (io.ReadCloser, error) {
		return c.backend.Read(ctx, id)
	}
	return content.NewLazyStream(ctx, open, c.gate, ev.Status), nil
}

// OnScanResult applies a scanner verdict to the event status.
func (c *Coordinator) OnScanResult(ctx context.Context, ev *EventContext, to attachment.Status) error {
	ctx = c.scope(ctx, ev)
	from := ev.Status
	if from == "" {
		from = attachment.StatusUnscanned
	}
	if !attachment.CanTransition(from, to) {
		return fmt.Errorf("scan result %s -> %s: %w", from, to, attachment.ErrInvalidTransition)
	}
	ev.Status = to
	if to == attachment.StatusInfected {
		logging.WithContext(ctx).Warn("attachment content infected", eventFields(ev)...)
	}
	ev.SetCompleted()
	return nil
}

func (c *Coordinator) upload(ctx context.Context, ev *EventContext, id string) error {
	cr := &countingReader{r: ev.Content}
	err := c.backend.Upload(ctx, cr, id, ev.MimeType)
	metrics.RecordContentUpload(cr.n, err == nil)
	if err != nil {
		return err
	}
	ev.Size = cr.n
	return nil
}
