package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "ORPHAN_MAX_AGE", "SNIFF_MEDIA_TYPES", "BINDINGS_FILE", "VCAP_SERVICES"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.OrphanMaxAge != time.Hour {
		t.Errorf("OrphanMaxAge = %v, want 1h", cfg.OrphanMaxAge)
	}
	if !cfg.SniffMediaTypes {
		t.Error("SniffMediaTypes should default to true")
	}

	list, err := cfg.Bindings()
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no bindings, got %v, %v", list, err)
	}
}

func TestLoadRejectsNonPositiveOrphanAge(t *testing.T) {
	t.Setenv("ORPHAN_MAX_AGE", "-5m")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative ORPHAN_MAX_AGE")
	}
}

func TestBindingsFileWinsOverVCAP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.yaml")
	if err := os.WriteFile(path, []byte("bindings:\n  - name: disk\n    credentials:\n      root_path: /tmp/x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BINDINGS_FILE", path)
	t.Setenv("VCAP_SERVICES", `{"objectstore":[{"name":"s3","credentials":{"host":"s3.amazonaws.com"}}]}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	list, err := cfg.Bindings()
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	if len(list) != 1 || list[0].Name != "disk" {
		t.Fatalf("expected file binding, got %+v", list)
	}
}
