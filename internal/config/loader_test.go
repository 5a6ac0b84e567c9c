package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir changes into dir for the duration of the test. It stands in for
// t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "carscout.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadNoConfigFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without config file: %v", err)
	}
	if cfg.Crawl.BreakEvery != 77 || cfg.Progress.PollInterval != 10*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadDiscoveredConfigApplies(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "storage:\n  type: csv\npipeline:\n  outlier_ratio: 5\n")
	chdir(t, dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Type != "csv" {
		t.Errorf("storage.type = %q, want csv", cfg.Storage.Type)
	}
	if cfg.Pipeline.OutlierRatio != 5 {
		t.Errorf("pipeline.outlier_ratio = %v, want 5", cfg.Pipeline.OutlierRatio)
	}
	// Untouched sections keep their defaults.
	if cfg.Crawl.BreakEvery != 77 {
		t.Errorf("crawl.break_every = %d, want 77", cfg.Crawl.BreakEvery)
	}
}

// A discovered config file that exists but does not parse must fail the
// load, not silently fall back to defaults.
func TestLoadMalformedDiscoveredConfigFails(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "storage: [unclosed\n")
	chdir(t, dir)

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for malformed discovered config file")
	}
}

func TestLoadExplicitMissingConfigFails(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load("no-such-file.yaml"); err == nil {
		t.Fatal("expected error for explicitly named missing config file")
	}
}

func TestLoadExplicitConfigApplies(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "logging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
}
