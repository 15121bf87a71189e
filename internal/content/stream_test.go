package content

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/gate"
)

type countingOpener struct {
	calls  int
	data   string
	closed int
	err    error
}

type trackedCloser struct {
	io.Reader
	o *countingOpener
}

func (t trackedCloser) Close() error {
	t.o.closed++
	return nil
}

func (o *countingOpener) open() (io.ReadCloser, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return trackedCloser{Reader: strings.NewReader(o.data), o: o}, nil
}

func TestNeverReadNeverOpens(t *testing.T) {
	o := &countingOpener{data: "hello"}
	s := NewLazyStream(context.Background(), o.open, gate.New(), attachment.StatusClean)

	if o.calls != 0 {
		t.Fatalf("constructor opened content: %d calls", o.calls)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if o.calls != 0 {
		t.Errorf("close without read opened content: %d calls", o.calls)
	}
	if o.closed != 0 {
		t.Errorf("close forwarded to unopened resource")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestInterleavedReadsOpenOnce(t *testing.T) {
	o := &countingOpener{data: "abcdefghij"}
	s := NewLazyStream(context.Background(), o.open, gate.New(), attachment.StatusClean)

	b, err := s.ReadByte()
	if err != nil || b != 'a' {
		t.Fatalf("ReadByte = %q, %v", b, err)
	}

	buf := make([]byte, 3)
	if n, err := s.Read(buf); err != nil || string(buf[:n]) != "bcd" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}

	wide := []byte("..........")
	n, err := s.ReadRange(wide, 2, 4)
	if err != nil || n != 4 || string(wide) != "..efgh...." {
		t.Fatalf("ReadRange = %d, %q, %v", n, wide, err)
	}

	rest, err := io.ReadAll(s)
	if err != nil || string(rest) != "ij" {
		t.Fatalf("ReadAll rest = %q, %v", rest, err)
	}

	if o.calls != 1 {
		t.Errorf("opener called %d times, want 1", o.calls)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if o.closed != 1 {
		t.Errorf("underlying close called %d times, want 1", o.closed)
	}
}

func TestGateFailureNeverOpens(t *testing.T) {
	tests := []struct {
		status attachment.Status
		want   error
	}{
		{attachment.StatusUnscanned, attachment.ErrNotScanned},
		{attachment.StatusScanning, attachment.ErrNotScanned},
		{attachment.StatusInfected, attachment.ErrNotClean},
	}

	for _, tt := range tests {
		o := &countingOpener{data: "x"}
		s := NewLazyStream(context.Background(), o.open, gate.New(), tt.status)

		if _, err := s.Read(make([]byte, 1)); !errors.Is(err, tt.want) {
			t.Errorf("%s: Read error = %v, want %v", tt.status, err, tt.want)
		}
		if _, err := s.ReadByte(); !errors.Is(err, tt.want) {
			t.Errorf("%s: second read error = %v, want sticky %v", tt.status, err, tt.want)
		}
		if o.calls != 0 {
			t.Errorf("%s: opener called %d times after gate failure", tt.status, o.calls)
		}
		if s.Opened() {
			t.Errorf("%s: stream reports opened", tt.status)
		}
	}
}

func TestOpenErrorIsSticky(t *testing.T) {
	o := &countingOpener{err: attachment.ErrNotFound}
	s := NewLazyStream(context.Background(), o.open, gate.New(), attachment.StatusClean)

	for i := 0; i < 3; i++ {
		if _, err := s.Read(make([]byte, 4)); !errors.Is(err, attachment.ErrNotFound) {
			t.Fatalf("read %d: error = %v", i, err)
		}
	}
	if o.calls != 1 {
		t.Errorf("opener called %d times, want 1", o.calls)
	}
}

func TestReadAfterClose(t *testing.T) {
	o := &countingOpener{data: "x"}
	s := NewLazyStream(context.Background(), o.open, gate.New(), attachment.StatusClean)
	s.Close()
	if _, err := s.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if o.calls != 0 {
		t.Errorf("opened after close")
	}
}

func TestReadRangeBounds(t *testing.T) {
	o := &countingOpener{data: "x"}
	s := NewLazyStream(context.Background(), o.open, gate.New(), attachment.StatusClean)
	if _, err := s.ReadRange(make([]byte, 2), 1, 5); !errors.Is(err, io.ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
	if n, err := s.ReadRange(make([]byte, 2), 0, 0); n != 0 || err != nil {
		t.Fatalf("zero-length read = %d, %v", n, err)
	}
	if o.calls != 0 {
		t.Errorf("bounds errors must not open content")
	}
}

func TestCustomGate(t *testing.T) {
	var seen attachment.Status
	g := gate.Func(func(_ context.Context, s attachment.Status) error {
		seen = s
		return nil
	})
	o := &countingOpener{data: "payload"}
	s := NewLazyStream(context.Background(), o.open, g, attachment.StatusScanning)

	data, err := io.ReadAll(s)
	if err != nil || !bytes.Equal(data, []byte("payload")) {
		t.Fatalf("ReadAll = %q, %v", data, err)
	}
	if seen != attachment.StatusScanning {
		t.Errorf("gate saw %q", seen)
	}
}
