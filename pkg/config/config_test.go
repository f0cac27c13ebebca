package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Default()
	if cfg.Listen != want.Listen || cfg.CatalogDir != want.CatalogDir || cfg.PoolDir != want.PoolDir {
		t.Errorf("got %+v, want defaults %+v", cfg, want)
	}
	if cfg.Defaults != want.Defaults {
		t.Errorf("got request defaults %+v, want %+v", cfg.Defaults, want.Defaults)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocvd.yaml")
	body := `
listen: 0.0.0.0:9001
catalog_dir: /srv/ocvd/pristine
log:
  level: debug
  file: /var/log/ocvd.log
  max_size_mb: 10
defaults:
  num_starts: 25
  gradient_limit: 0.05
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9001" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.CatalogDir != "/srv/ocvd/pristine" {
		t.Errorf("catalog_dir = %q", cfg.CatalogDir)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/var/log/ocvd.log" || cfg.Log.MaxSizeMB != 10 {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Defaults.NumStarts != 25 || cfg.Defaults.GradientLimit != 0.05 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	// Unset fields keep their built-in values.
	if cfg.PoolDir != Default().PoolDir || cfg.Defaults.NumPoints != Default().Defaults.NumPoints {
		t.Errorf("unset fields lost their defaults: %+v", cfg)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen: [not a string"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OCVD_LISTEN", "127.0.0.1:9999")
	t.Setenv("OCVD_CATALOG_DIR", "/tmp/cat")
	t.Setenv("OCVD_LOG_LEVEL", "trace")
	t.Setenv("OCVD_NUM_STARTS", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.CatalogDir != "/tmp/cat" {
		t.Errorf("catalog_dir = %q", cfg.CatalogDir)
	}
	if cfg.Log.Level != "trace" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Defaults.NumStarts != 7 {
		t.Errorf("num_starts = %d", cfg.Defaults.NumStarts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"num_points too small", func(c *Config) { c.Defaults.NumPoints = 1 }},
		{"num_starts zero", func(c *Config) { c.Defaults.NumStarts = 0 }},
		{"gradient_limit zero", func(c *Config) { c.Defaults.GradientLimit = 0 }},
		{"maxiter zero", func(c *Config) { c.Defaults.MaxIter = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default().validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}
