package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("parsing embedded default config: %v", err)
	}

	if len(cfg.Locales) == 0 {
		t.Fatal("default config has no locales")
	}
	for _, lc := range cfg.Locales {
		if lc.Country == "" || lc.Language == "" {
			t.Errorf("incomplete locale: %+v", lc)
		}
		if len(lc.Feeds) == 0 {
			t.Errorf("locale %s has no feeds", lc.Locale().Key())
		}
	}

	if cfg.Pipeline.Interval() != 2*time.Hour {
		t.Errorf("interval = %s, want 2h", cfg.Pipeline.Interval())
	}
	if cfg.Fabrication.RealPerFake != 9 {
		t.Errorf("real_per_fake = %d, want 9", cfg.Fabrication.RealPerFake)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := parse([]byte("locales:\n  - country: fr\n    language: fr\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Oracle.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", cfg.Oracle.Provider)
	}
	if cfg.Pipeline.DedupWindow() != 48*time.Hour {
		t.Errorf("dedup window = %s, want 48h", cfg.Pipeline.DedupWindow())
	}
	if cfg.Fabrication.MaxPerRun != 3 {
		t.Errorf("max_per_run = %d, want 3", cfg.Fabrication.MaxPerRun)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := parse([]byte("pipeline:\n  interval_hours: 6\noracle:\n  provider: anthropic\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Pipeline.Interval() != 6*time.Hour {
		t.Errorf("interval = %s, want 6h", cfg.Pipeline.Interval())
	}
	if cfg.Oracle.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", cfg.Oracle.Provider)
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("locales: []\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}

	if _, err := ResolveConfigPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing explicit path accepted")
	}
}

func TestGetDataDirPrefersConfig(t *testing.T) {
	cfg := &Config{}
	cfg.Output.DataDir = "/tmp/newsroom-test"
	if got := cfg.GetDataDir(); got != "/tmp/newsroom-test" {
		t.Errorf("data dir = %q, want configured value", got)
	}

	cfg.Output.DataDir = ""
	if got := cfg.GetDataDir(); got == "" {
		t.Error("empty data dir fallback")
	}
}
