package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}

	if cfg.OutputDB != "addresses.db" {
		t.Errorf("OutputDB = %q, want addresses.db", cfg.OutputDB)
	}
	if cfg.CachePages != 10_000 {
		t.Errorf("CachePages = %d, want 10000", cfg.CachePages)
	}
	if cfg.RefreshDelay != 1000*time.Millisecond {
		t.Errorf("RefreshDelay = %v, want 1s", cfg.RefreshDelay)
	}
	if cfg.SkipFilters {
		t.Error("SkipFilters should default to false")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DEDUP_OUTPUT_DB", "custom.db")
	t.Setenv("DEDUP_KEEP", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}

	if cfg.OutputDB != "custom.db" {
		t.Errorf("OutputDB = %q, want custom.db", cfg.OutputDB)
	}
	if !cfg.Keep {
		t.Error("Keep should be true from DEDUP_KEEP env var")
	}
}
