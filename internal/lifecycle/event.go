package lifecycle

import (
	"io"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/txn"
)

// EventContext carries one attachment through a lifecycle handler. Handlers
// read the inputs and write back DocumentID, Status and Size.
type EventContext struct {
	Tenant        string
	Entity        string
	AttachmentIDs map[string]any
	ParentIDs     map[string]any

	ContentID  string
	DocumentID string
	FileName   string
	MimeType   string
	Status     attachment.Status
	Size       int64

	// Content is the new content for create and update events. A nil
	// Content on update clears the attachment.
	Content io.Reader

	// Tx is the host transaction, if any.
	Tx txn.Transaction

	completed bool
}

// SetCompleted marks the event as handled.
func (e *EventContext) SetCompleted() { e.completed = true }

// IsCompleted reports whether a handler finished the event.
func (e *EventContext) IsCompleted() bool { return e.completed }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
