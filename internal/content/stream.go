// Package content provides the lazily opened, status-gated attachment stream
// and media type helpers.
package content

import (
	"context"
	"errors"
	"io"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/gate"
	"github.com/fruitsalade/attachments/internal/metrics"
)

// ErrClosed is returned by reads after Close.
var ErrClosed = errors.New("content stream closed")

// Opener opens the underlying content. It is called at most once.
type Opener func() (io.ReadCloser, error)

// LazyStream defers opening attachment content until the first read, and
// verifies the scan status right before that. A failed gate check or open is
// remembered and returned by every later read.
//
// A LazyStream has a single consumer and is not safe for concurrent use.
type LazyStream struct {
	ctx    context.Context
	open   Opener
	gate   gate.Gate
	status attachment.Status

	started bool
	closed  bool
	rc      io.ReadCloser
	err     error
	read    int64
}

// NewLazyStream returns a stream that opens content on first read.
func NewLazyStream(ctx context.Context, open Opener, g gate.Gate, status attachment.Status) *LazyStream {
	return &LazyStream{ctx: ctx, open: open, gate: g, status: status}
}

func (s *LazyStream) init() error {
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return s.err
	}
	s.started = true

	if err := s.gate.Verify(s.ctx, s.status); err != nil {
		s.err = err
		return err
	}
	rc, err := s.open()
	if err != nil {
		s.err = err
		return err
	}
	s.rc = rc
	return nil
}

// Read reads into p.
func (s *LazyStream) Read(p []byte) (int, error) {
	if err := s.init(); err != nil {
		return 0, err
	}
	n, err := s.rc.Read(p)
	s.read += int64(n)
	return n, err
}

// ReadByte reads a single byte.
func (s *LazyStream) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := s.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// ReadRange reads up to length bytes into p starting at p[off].
func (s *LazyStream) ReadRange(p []byte, off, length int) (int, error) {
	if off < 0 || length < 0 || off+length > len(p) {
		return 0, io.ErrShortBuffer
	}
	if length == 0 {
		return 0, nil
	}
	return s.Read(p[off : off+length])
}

// Opened reports whether the underlying content was opened.
func (s *LazyStream) Opened() bool { return s.rc != nil }

// Status returns the scan status the stream was created with.
func (s *LazyStream) Status() attachment.Status { return s.status }

// Close releases the underlying content if it was opened. Closing an unopened
// stream never opens it.
func (s *LazyStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.rc == nil {
		return nil
	}
	metrics.RecordContentDownload(s.read)
	return s.rc.Close()
}
