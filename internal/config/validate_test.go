package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{Library: LibraryConfig{Root: t.TempDir()}}
	cfg.applyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, validConfig(t).Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"missing root", func(c *Config) { c.Library.Root = "" }, "library.root"},
		{"relative root", func(c *Config) { c.Library.Root = "games" }, "library.root"},
		{"relative import dir", func(c *Config) { c.Library.ImportDir = "incoming" }, "library.import_dir"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log size", func(c *Config) { c.Log.MaxSizeMB = -1 }, "log.max_size_mb"},
		{"concurrency", func(c *Config) { c.Import.Concurrency = 65 }, "import.concurrency"},
		{"debounce", func(c *Config) { c.Import.Debounce = -time.Second }, "import.debounce"},
		{"event retention", func(c *Config) { c.Database.EventRetention = -time.Hour }, "database.event_retention"},
		{"max dimension", func(c *Config) { c.Artwork.MaxDimension = 10000 }, "artwork.max_dimension"},
		{"download timeout", func(c *Config) { c.Artwork.DownloadTimeout = -time.Second }, "artwork.download_timeout"},
		{"cache ttl", func(c *Config) { c.OpenVGDB.CacheTTL = -time.Hour }, "openvgdb.cache_ttl"},
		{"systems file", func(c *Config) { c.Systems.File = filepath.Join(t.TempDir(), "absent.toml") }, "systems.file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			errs := cfg.Validate()
			if assert.Len(t, errs, 1) {
				assert.Contains(t, errs[0], tt.field)
			}
		})
	}
}
