package config

import (
	"fmt"
	"os"
	"path/filepath"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Library.Root == "" {
		errs = append(errs, "library.root: required")
	} else if !filepath.IsAbs(c.Library.Root) {
		errs = append(errs, fmt.Sprintf("library.root: must be an absolute path, got %q", c.Library.Root))
	}
	if c.Library.ImportDir != "" && !filepath.IsAbs(c.Library.ImportDir) {
		errs = append(errs, fmt.Sprintf("library.import_dir: must be an absolute path, got %q", c.Library.ImportDir))
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if c.Log.MaxSizeMB < 0 {
		errs = append(errs, fmt.Sprintf("log.max_size_mb: must not be negative, got %d", c.Log.MaxSizeMB))
	}

	if c.Database.EventRetention < 0 {
		errs = append(errs, fmt.Sprintf("database.event_retention: must not be negative, got %s", c.Database.EventRetention))
	}

	if c.Import.Concurrency < 0 || c.Import.Concurrency > 64 {
		errs = append(errs, fmt.Sprintf("import.concurrency: must be between 1 and 64, got %d", c.Import.Concurrency))
	}
	if c.Import.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("import.debounce: must not be negative, got %s", c.Import.Debounce))
	}

	if c.Artwork.MaxDimension < 0 || c.Artwork.MaxDimension > 4096 {
		errs = append(errs, fmt.Sprintf("artwork.max_dimension: must be between 1 and 4096, got %d", c.Artwork.MaxDimension))
	}
	if c.Artwork.DownloadTimeout < 0 {
		errs = append(errs, fmt.Sprintf("artwork.download_timeout: must not be negative, got %s", c.Artwork.DownloadTimeout))
	}
	if c.OpenVGDB.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("openvgdb.cache_ttl: must not be negative, got %s", c.OpenVGDB.CacheTTL))
	}

	if c.Systems.File != "" {
		if _, err := os.Stat(c.Systems.File); err != nil {
			errs = append(errs, fmt.Sprintf("systems.file: %v", err))
		}
	}

	return errs
}
