package attachment

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   any
		want Status
	}{
		{nil, StatusUnscanned},
		{"", StatusUnscanned},
		{"Clean", StatusClean},
		{StatusInfected, StatusInfected},
		{"bogus", Status("bogus")},
	}

	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		expect   bool
	}{
		{StatusUnscanned, StatusScanning, true},
		{StatusUnscanned, StatusNoScanner, true},
		{StatusScanning, StatusClean, true},
		{StatusScanning, StatusInfected, true},
		{StatusScanning, StatusUnscanned, false},
		{StatusInfected, StatusClean, false},
		{StatusClean, StatusScanning, true},
		{StatusClean, StatusInfected, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.expect {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expect)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("read doc-1: %w", ErrNotFound), http.StatusNotFound},
		{ErrNotScanned, http.StatusConflict},
		{ErrNotClean, http.StatusMethodNotAllowed},
		{ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{fmt.Errorf("put: %w", ErrStorageIO), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	if !Retryable(fmt.Errorf("wrapped: %w", ErrNotScanned)) {
		t.Error("expected NotScanned to be retryable")
	}
	if Retryable(ErrNotClean) {
		t.Error("expected NotClean to be terminal")
	}
}
