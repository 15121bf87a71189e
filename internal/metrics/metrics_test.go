package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStorageOperation(t *testing.T) {
	before := testutil.ToFloat64(storageOperationsTotal.WithLabelValues("local", "upload", "success"))
	RecordStorageOperation("local", "upload", 5*time.Millisecond, true)
	after := testutil.ToFloat64(storageOperationsTotal.WithLabelValues("local", "upload", "success"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestSetSelectedBackend(t *testing.T) {
	SetSelectedBackend("s3")
	SetSelectedBackend("mock")
	if v := testutil.ToFloat64(selectedBackend.WithLabelValues("mock")); v != 1 {
		t.Errorf("mock gauge = %v, want 1", v)
	}
	if n := testutil.CollectAndCount(selectedBackend); n != 1 {
		t.Errorf("expected a single active kind, got %d series", n)
	}
}
