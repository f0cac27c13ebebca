// Package config loads the daemon configuration from a YAML file with
// OCVD_* environment overrides. A missing file yields the defaults; a
// malformed file is an error.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the TCP address the HTTP API binds to.
	Listen string `yaml:"listen"`
	// CatalogDir holds pristine profile descriptors and electrode tables.
	CatalogDir string `yaml:"catalog_dir"`
	// PoolDir holds saved degradation records.
	PoolDir string `yaml:"pool_dir"`
	// DataRoot confines external measurement file paths.
	DataRoot string `yaml:"data_root"`

	Log      Log      `yaml:"log"`
	Defaults Defaults `yaml:"defaults"`
}

// Log configures logging output. With File set, logs rotate there instead
// of going to stderr.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Defaults are the request-level defaults applied when a request omits a
// field.
type Defaults struct {
	NumPoints     int     `yaml:"num_points"`
	NumStarts     int     `yaml:"num_starts"`
	GradientLimit float64 `yaml:"gradient_limit"`
	MaxIter       int     `yaml:"maxiter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:     "127.0.0.1:8900",
		CatalogDir: "data/pristine",
		PoolDir:    "data/pool",
		DataRoot:   "data",
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Defaults: Defaults{
			NumPoints:     1001,
			NumStarts:     100,
			GradientLimit: 0.1,
			MaxIter:       200,
		},
	}
}

// Load reads the configuration at path, falling back to defaults when the
// file does not exist, then applies environment overrides. A .env file in
// the working directory is honored if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Debugf("no .env loaded: %v", err)
	}

	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logrus.Warnf("config file %s does not exist, using defaults", path)
	case err != nil:
		return nil, errors.Wrapf(err, "reading config %q", path)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %q", path)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OCVD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("OCVD_CATALOG_DIR"); v != "" {
		c.CatalogDir = v
	}
	if v := os.Getenv("OCVD_POOL_DIR"); v != "" {
		c.PoolDir = v
	}
	if v := os.Getenv("OCVD_DATA_ROOT"); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv("OCVD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OCVD_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("OCVD_NUM_STARTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Defaults.NumStarts = n
		}
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return errors.New("listen address must not be empty")
	}
	if c.Defaults.NumPoints < 2 {
		return errors.Errorf("defaults.num_points must be at least 2, got %d", c.Defaults.NumPoints)
	}
	if c.Defaults.NumStarts < 1 {
		return errors.Errorf("defaults.num_starts must be at least 1, got %d", c.Defaults.NumStarts)
	}
	if c.Defaults.GradientLimit <= 0 {
		return errors.Errorf("defaults.gradient_limit must be positive, got %g", c.Defaults.GradientLimit)
	}
	if c.Defaults.MaxIter < 1 {
		return errors.Errorf("defaults.maxiter must be at least 1, got %d", c.Defaults.MaxIter)
	}
	return nil
}
