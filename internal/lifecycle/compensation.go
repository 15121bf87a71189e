package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/journal"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
	"github.com/fruitsalade/attachments/internal/retry"
	"github.com/fruitsalade/attachments/internal/storage"
)

// track journals a fresh upload and registers its compensator. Content
// created outside a transaction is final immediately.
func (c *Coordinator) track(ctx context.Context, ev *EventContext) {
	if ev.Tx == nil {
		return
	}
	p := journal.PendingUpload{
		DocumentID: ev.DocumentID,
		Tenant:     ev.Tenant,
		CreatedAt:  c.now(),
	}
	if c.journal != nil {
		if err := c.journal.Record(ctx, p); err != nil {
			logging.WithContext(ctx).Warn("failed to journal pending upload",
				zap.String("document_id", p.DocumentID), zap.Error(err))
		}
	}
	ev.Tx.OnCompletion(c.compensator(p))
}

// compensator deletes the upload if the transaction did not commit. It runs
// after the request context may already be gone, so it rebuilds the tenant
// scope from the pending entry. Failures are logged and never returned.
func (c *Coordinator) compensator(p journal.PendingUpload) func(committed bool) {
	return func(committed bool) {
		ctx, cancel := context.WithTimeout(logging.WithTenant(context.Background(), p.Tenant), c.compensationTimeout)
		defer cancel()
		log := logging.WithContext(ctx).With(zap.String("document_id", p.DocumentID))

		if !committed {
			if err := c.delete(ctx, p.DocumentID); err != nil {
				metrics.RecordCompensation(false)
				log.Error("compensating delete failed, content orphaned", zap.Error(err))
				return
			}
			metrics.RecordCompensation(true)
			log.Info("rolled back attachment upload")
		}
		c.resolve(ctx, p)
	}
}

// deleteOnCommit removes cleared content once its transaction commits.
// Failures are logged and never returned.
func (c *Coordinator) deleteOnCommit(tenantID, id string) func(committed bool) {
	return func(committed bool) {
		if !committed {
			return
		}
		ctx, cancel := context.WithTimeout(logging.WithTenant(context.Background(), tenantID), c.compensationTimeout)
		defer cancel()
		if err := c.delete(ctx, id); err != nil {
			logging.WithContext(ctx).Error("failed to delete cleared attachment content after commit",
				zap.String("document_id", id), zap.Error(err))
			return
		}
		logging.WithContext(ctx).Debug("cleared attachment content deleted", zap.String("document_id", id))
	}
}

// delete removes content, retrying transient storage failures.
func (c *Coordinator) delete(ctx context.Context, id string) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return storage.IgnoreNotFound(c.backend.Delete(ctx, id))
	})
}

func (c *Coordinator) resolve(ctx context.Context, p journal.PendingUpload) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Resolve(ctx, p.Tenant, p.DocumentID); err != nil {
		logging.WithContext(ctx).Warn("failed to resolve pending upload",
			zap.String("document_id", p.DocumentID), zap.Error(err))
	}
}

// ReferenceFunc reports whether a host record still references the content.
type ReferenceFunc func(ctx context.Context, tenant, documentID string) (bool, error)

// RecoverOrphans deletes journaled uploads older than maxAge that no host
// record references, and returns how many were removed. Referenced entries
// are resolved and kept. A nil referenced treats every entry as orphaned.
func (c *Coordinator) RecoverOrphans(ctx context.Context, maxAge time.Duration, referenced ReferenceFunc) (int, error) {
	if c.journal == nil {
		return 0, nil
	}
	pending, err := c.journal.Expired(ctx, c.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("list pending uploads: %w", err)
	}

	swept := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		tctx := logging.WithTenant(ctx, p.Tenant)
		log := logging.WithContext(tctx).With(zap.String("document_id", p.DocumentID))

		if referenced != nil {
			ok, err := referenced(tctx, p.Tenant, p.DocumentID)
			if err != nil {
				log.Warn("reference check failed, keeping pending upload", zap.Error(err))
				continue
			}
			if ok {
				c.resolve(tctx, p)
				continue
			}
		}

		if err := c.delete(tctx, p.DocumentID); err != nil {
			log.Error("failed to delete orphaned upload", zap.Error(err))
			continue
		}
		c.resolve(tctx, p)
		swept++
	}

	metrics.RecordOrphansSwept(swept)
	if swept > 0 {
		logging.Info("swept orphaned uploads", zap.Int("count", swept))
	}
	return swept, nil
}
