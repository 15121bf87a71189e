// Package gate decides whether attachment content may be disclosed based on
// its malware scan status.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
)

// Decision is the classification of a scan status.
type Decision int

const (
	// Allow permits disclosure.
	Allow Decision = iota
	// Pending blocks disclosure until the scan finishes.
	Pending
	// Reject blocks disclosure permanently.
	Reject
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Pending:
		return "pending"
	default:
		return "reject"
	}
}

// Classify maps a status to a decision. Unrecognized statuses are rejected.
func Classify(status attachment.Status) Decision {
	switch status {
	case attachment.StatusClean, attachment.StatusNoScanner:
		return Allow
	case attachment.StatusUnscanned, attachment.StatusScanning:
		return Pending
	default:
		return Reject
	}
}

// Gate validates an attachment status before its content is read.
type Gate interface {
	Verify(ctx context.Context, status attachment.Status) error
}

// Func adapts a function to the Gate interface.
type Func func(ctx context.Context, status attachment.Status) error

// Verify calls f.
func (f Func) Verify(ctx context.Context, status attachment.Status) error { return f(ctx, status) }

// StatusGate is the default gate.
//
// NoScanner passes like Clean, but logs a warning and is counted under
// decision "allow_unscanned" since the content was never verified.
type StatusGate struct{}

// New returns the default status gate.
func New() StatusGate { return StatusGate{} }

// Verify returns nil for Clean and NoScanner, attachment.ErrNotScanned for
// Unscanned and Scanning, and attachment.ErrNotClean for anything else.
func (StatusGate) Verify(ctx context.Context, status attachment.Status) error {
	switch Classify(status) {
	case Allow:
		if status == attachment.StatusNoScanner {
			metrics.RecordGateDecision("allow_unscanned")
			logging.WithContext(ctx).Warn("malware scanner disabled, serving unscanned content",
				zap.String("status", string(status)))
			return nil
		}
		metrics.RecordGateDecision(Allow.String())
		return nil
	case Pending:
		metrics.RecordGateDecision(Pending.String())
		return fmt.Errorf("status %s: %w", status, attachment.ErrNotScanned)
	default:
		metrics.RecordGateDecision(Reject.String())
		return fmt.Errorf("status %s: %w", status, attachment.ErrNotClean)
	}
}
