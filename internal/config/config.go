// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Import   ImportConfig   `toml:"import"`
	OpenVGDB OpenVGDBConfig `toml:"openvgdb"`
	Artwork  ArtworkConfig  `toml:"artwork"`
	Systems  SystemsConfig  `toml:"systems"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"` // empty logs to stderr only
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type DatabaseConfig struct {
	Path           string        `toml:"path"`
	EventRetention time.Duration `toml:"event_retention"`
}

type LibraryConfig struct {
	Root      string `toml:"root"`
	ImportDir string `toml:"import_dir"`
}

type ImportConfig struct {
	Concurrency       int           `toml:"concurrency"`
	DeleteJunk        bool          `toml:"delete_junk"`
	OverwriteMetadata bool          `toml:"overwrite_metadata"`
	Debounce          time.Duration `toml:"debounce"`
}

type OpenVGDBConfig struct {
	Path     string        `toml:"path"`
	CacheTTL time.Duration `toml:"cache_ttl"`
}

type ArtworkConfig struct {
	MaxDimension    int           `toml:"max_dimension"`
	DownloadTimeout time.Duration `toml:"download_timeout"`
}

type SystemsConfig struct {
	File string `toml:"file"` // replaces the built-in system table
}

// Defaults
const (
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 50
	DefaultLogMaxBackups   = 3
	DefaultConcurrency     = 3
	DefaultDebounce        = 2 * time.Second
	DefaultCacheTTL        = 24 * time.Hour
	DefaultMaxDimension    = 640
	DefaultDownloadTimeout = 30 * time.Second
	DefaultEventRetention  = 30 * 24 * time.Hour
)

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !md.IsDefined("import", "delete_junk") {
		cfg.Import.DeleteJunk = true
	}
	cfg.applyDefaults()

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Database.Path == "" && c.Library.Root != "" {
		c.Database.Path = filepath.Join(c.Library.Root, "romarr.db")
	}
	if c.Database.EventRetention == 0 {
		c.Database.EventRetention = DefaultEventRetention
	}
	if c.Import.Concurrency == 0 {
		c.Import.Concurrency = DefaultConcurrency
	}
	if c.Import.Debounce == 0 {
		c.Import.Debounce = DefaultDebounce
	}
	if c.OpenVGDB.CacheTTL == 0 {
		c.OpenVGDB.CacheTTL = DefaultCacheTTL
	}
	if c.Artwork.MaxDimension == 0 {
		c.Artwork.MaxDimension = DefaultMaxDimension
	}
	if c.Artwork.DownloadTimeout == 0 {
		c.Artwork.DownloadTimeout = DefaultDownloadTimeout
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars expands environment references and returns the names
// (or required-variable messages) that could not be resolved. Unresolved
// references are left in place. Comment lines are copied untouched.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		var lineMissing []string
		lines[i], lineMissing = substituteLine(line)
		missing = append(missing, lineMissing...)
	}
	return strings.Join(lines, ""), missing
}

func substituteLine(line string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if value == "" {
				return arg
			}
			return value
		case ":?":
			if value == "" {
				missing = append(missing, name+": "+strings.TrimSpace(arg))
				return match
			}
			return value
		}
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
