// Package service connects the host's record events to the attachment
// lifecycle: it strips content out of written records, stores it, and puts
// lazy streams back into read results.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/content"
	"github.com/fruitsalade/attachments/internal/intercept"
	"github.com/fruitsalade/attachments/internal/lifecycle"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/model"
	"github.com/fruitsalade/attachments/internal/query"
	"github.com/fruitsalade/attachments/internal/record"
	"github.com/fruitsalade/attachments/internal/tenant"
	"github.com/fruitsalade/attachments/internal/txn"
)

// Handler implements the before and after hooks of the host's record events.
type Handler struct {
	index       *model.Index
	interceptor *intercept.Interceptor
	rewriter    *query.Rewriter
	coord       *lifecycle.Coordinator
	sniff       bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithMediaSniffing resolves missing or generic mime types from the file
// name and the content before validation.
func WithMediaSniffing(enabled bool) Option {
	return func(h *Handler) { h.sniff = enabled }
}

// New creates a Handler for the host model.
func New(m model.Model, coord *lifecycle.Coordinator, opts ...Option) *Handler {
	index, ok := m.(*model.Index)
	if !ok {
		index = model.NewIndex(m)
	}
	h := &Handler{
		index:       index,
		interceptor: intercept.New(index),
		rewriter:    query.NewRewriter(index),
		coord:       coord,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SnapshotFunc returns the stored state of the record at p before an update,
// or nil if the host has none.
type SnapshotFunc func(p intercept.Path) record.Record

func (h *Handler) descriptor(p intercept.Path) model.FieldDescriptor {
	d, _ := h.index.Descriptor(p.Entity.Name)
	return d
}

func (h *Handler) event(ctx context.Context, p intercept.Path, d model.FieldDescriptor, tx txn.Transaction) *lifecycle.EventContext {
	rec := p.Record
	return &lifecycle.EventContext{
		Tenant:        tenant.FromContext(ctx),
		Entity:        p.Entity.Name,
		AttachmentIDs: p.Keys,
		ParentIDs:     p.ParentKeys,
		ContentID:     rec.String(d.ContentID),
		DocumentID:    rec.String(d.DocumentID),
		FileName:      rec.String(d.FileName),
		MimeType:      rec.String(d.MimeType),
		Status:        attachment.ParseStatus(rec.Get(d.Status)),
		Tx:            tx,
	}
}

// prepare turns a content value into a reader, resolves and validates its
// media type, and fills in the content id.
func (h *Handler) prepare(ev *lifecycle.EventContext, d model.FieldDescriptor, rec record.Record, value any) error {
	r, err := readerOf(value)
	if err != nil {
		return err
	}
	if h.sniff {
		mt, sniffed, err := content.Sniff(r, ev.FileName, ev.MimeType)
		if err != nil {
			return err
		}
		r = sniffed
		if mt != ev.MimeType {
			ev.MimeType = mt
			rec.Put(d.MimeType, mt)
		}
	}
	if err := content.Validate(ev.FileName, ev.MimeType, d.AcceptableMediaTypes); err != nil {
		return err
	}
	if ev.ContentID == "" && d.ContentID != "" {
		ev.ContentID = uuid.NewString()
		rec.Put(d.ContentID, ev.ContentID)
	}
	ev.Content = r
	return nil
}

func writeBack(rec record.Record, d model.FieldDescriptor, ev *lifecycle.EventContext) {
	if ev.DocumentID == "" {
		rec.Put(d.DocumentID, nil)
	} else {
		rec.Put(d.DocumentID, ev.DocumentID)
	}
	if d.Status != "" && ev.Status != "" {
		rec.Put(d.Status, string(ev.Status))
	}
	if d.Size != "" {
		rec.Put(d.Size, ev.Size)
	}
}

// BeforeCreate stores the content of every attachment in records and
// replaces it with the reference id, status and size. Uploads are undone if
// tx rolls back. The first failure aborts the batch.
func (h *Handler) BeforeCreate(ctx context.Context, tx txn.Transaction, entity string, records []record.Record) error {
	return h.interceptor.Process(entity, records, intercept.ContentField(h.index),
		func(p intercept.Path, _ model.Element, value any) (any, error) {
			if value == nil {
				return intercept.Remove, nil
			}
			defer closeValue(value)

			d := h.descriptor(p)
			ev := h.event(ctx, p, d, tx)
			if err := h.prepare(ev, d, p.Record, value); err != nil {
				return nil, err
			}
			if err := h.coord.OnCreate(ctx, ev); err != nil {
				return nil, err
			}
			writeBack(p.Record, d, ev)
			return intercept.Remove, nil
		})
}

// BeforeUpdate replaces or clears attachment content. The reference id is
// taken from snapshot when available, otherwise from the record itself.
func (h *Handler) BeforeUpdate(ctx context.Context, tx txn.Transaction, entity string, records []record.Record, snapshot SnapshotFunc) error {
	return h.interceptor.Process(entity, records, intercept.ContentField(h.index),
		func(p intercept.Path, _ model.Element, value any) (any, error) {
			defer closeValue(value)

			d := h.descriptor(p)
			ev := h.event(ctx, p, d, tx)
			if snapshot != nil {
				if prior := snapshot(p); prior != nil {
					ev.DocumentID = prior.String(d.DocumentID)
					if ev.FileName == "" {
						ev.FileName = prior.String(d.FileName)
					}
				}
			}

			if value != nil {
				if err := h.prepare(ev, d, p.Record, value); err != nil {
					return nil, err
				}
			}
			if err := h.coord.OnUpdate(ctx, ev); err != nil {
				return nil, err
			}
			writeBack(p.Record, d, ev)
			if value == nil && d.Status != "" {
				p.Record.Put(d.Status, nil)
			}
			return intercept.Remove, nil
		})
}

// BeforeDelete soft-deletes the content referenced by the records being
// deleted. With a transaction the delete waits for the commit, so a rolled
// back delete keeps its content; without one it happens immediately.
func (h *Handler) BeforeDelete(ctx context.Context, tx txn.Transaction, entity string, records []record.Record) error {
	pred := intercept.Field(h.index, func(d model.FieldDescriptor) string { return d.DocumentID })
	return h.interceptor.Process(entity, records, pred,
		func(p intercept.Path, _ model.Element, value any) (any, error) {
			d := h.descriptor(p)
			ev := h.event(ctx, p, d, nil)
			if ev.DocumentID == "" {
				return value, nil
			}
			if tx == nil {
				if err := h.coord.OnMarkDeleted(ctx, ev); err != nil {
					return nil, err
				}
				return value, nil
			}

			tenantID := ev.Tenant
			tx.OnCompletion(func(committed bool) {
				if !committed {
					return
				}
				dctx := logging.WithTenant(context.Background(), tenantID)
				if err := h.coord.OnMarkDeleted(dctx, ev); err != nil {
					logging.WithContext(dctx).Error("failed to delete attachment content after commit",
						zap.String("document_id", ev.DocumentID), zap.Error(err))
				}
			})
			return value, nil
		})
}

// Restore brings back the content of restored records.
func (h *Handler) Restore(ctx context.Context, entity string, records []record.Record) error {
	pred := intercept.Field(h.index, func(d model.FieldDescriptor) string { return d.DocumentID })
	return h.interceptor.Process(entity, records, pred,
		func(p intercept.Path, _ model.Element, value any) (any, error) {
			d := h.descriptor(p)
			if err := h.coord.OnRestore(ctx, h.event(ctx, p, d, nil)); err != nil {
				return nil, err
			}
			return value, nil
		})
}

// BeforeRead adds the reference id and status to every node of a select
// list that reads attachment content.
func (h *Handler) BeforeRead(entity string, items []query.Item) []query.Item {
	return h.rewriter.Rewrite(entity, items)
}

// AfterRead replaces selected content fields with lazy streams. Content is
// opened, and its status checked, only when a stream is read.
func (h *Handler) AfterRead(ctx context.Context, entity string, records []record.Record) error {
	return h.interceptor.Process(entity, records, intercept.ContentField(h.index),
		func(p intercept.Path, _ model.Element, value any) (any, error) {
			d := h.descriptor(p)
			stream, err := h.coord.OnRead(ctx, h.event(ctx, p, d, nil))
			if err != nil {
				return nil, err
			}
			if stream == nil {
				return nil, nil
			}
			return stream, nil
		})
}

// StripDraftMimeType drops the mime type from draft records that carry no
// content in the same write.
func (h *Handler) StripDraftMimeType(entity string, records []record.Record) error {
	pred := intercept.Field(h.index, func(d model.FieldDescriptor) string { return d.MimeType })
	return h.interceptor.Process(entity, records, pred,
		func(p intercept.Path, _ model.Element, value any) (any, error) {
			if p.Record.Has(h.descriptor(p).Content) {
				return value, nil
			}
			return intercept.Remove, nil
		})
}

func readerOf(value any) (io.Reader, error) {
	switch v := value.(type) {
	case io.Reader:
		return v, nil
	case []byte:
		return bytes.NewReader(v), nil
	case string:
		return strings.NewReader(v), nil
	default:
		return nil, fmt.Errorf("content of type %T: %w", value, attachment.ErrUnsupported)
	}
}

func closeValue(value any) {
	if c, ok := value.(io.Closer); ok {
		c.Close()
	}
}
