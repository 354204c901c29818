// Package systems describes the emulated platforms a library can hold and
// where their files live on disk.
package systems

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalidTable indicates a system table that cannot be used.
	ErrInvalidTable = errors.New("invalid system table")

	// ErrUnknownSystem indicates a lookup for an identifier that is not configured.
	ErrUnknownSystem = errors.New("unknown system")
)

// System describes one emulated platform.
type System struct {
	ID           string      `toml:"id"`
	Name         string      `toml:"name"`
	ShortName    string      `toml:"short_name"`
	Manufacturer string      `toml:"manufacturer"`
	Extensions   []string    `toml:"extensions"`
	CDBased      bool        `toml:"cd_based"`
	HeaderOffset int64       `toml:"header_offset"` // bytes skipped before hashing
	OpenVGDBID   int         `toml:"openvgdb_id"`
	Aliases      []string    `toml:"aliases"`
	BIOS         []BIOSEntry `toml:"bios"`
}

// BIOSEntry is a firmware file a system needs.
type BIOSEntry struct {
	SystemID    string `toml:"-"`
	FileName    string `toml:"file_name"`
	MD5         string `toml:"md5"` // uppercase hex
	Size        int64  `toml:"size"`
	Description string `toml:"description"`
}

// Table is the on-disk form of the system configuration.
type Table struct {
	CDExtensions []string `toml:"cd_extensions"`
	Systems      []System `toml:"system"`
}

// ParseTable decodes a TOML system table.
func ParseTable(data string) (*Table, error) {
	var t Table
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("parsing system table: %w", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTable reads a system table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading system table: %w", err)
	}
	return ParseTable(string(data))
}

// DefaultTable returns the built-in system table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultSystems)
	if err != nil {
		panic("systems: embedded table is invalid: " + err.Error())
	}
	return t
}

func (t *Table) normalize() error {
	if len(t.Systems) == 0 {
		return fmt.Errorf("%w: no systems defined", ErrInvalidTable)
	}
	seen := make(map[string]bool, len(t.Systems))
	for i := range t.Systems {
		s := &t.Systems[i]
		s.ID = strings.ToLower(strings.TrimSpace(s.ID))
		if s.ID == "" {
			return fmt.Errorf("%w: system %d has no id", ErrInvalidTable, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate system id %q", ErrInvalidTable, s.ID)
		}
		seen[s.ID] = true
		if s.HeaderOffset < 0 {
			return fmt.Errorf("%w: system %q has negative header offset", ErrInvalidTable, s.ID)
		}
		for j, ext := range s.Extensions {
			s.Extensions[j] = normalizeExt(ext)
		}
		for j, alias := range s.Aliases {
			s.Aliases[j] = strings.ToLower(strings.TrimSpace(alias))
		}
		for j := range s.BIOS {
			b := &s.BIOS[j]
			b.SystemID = s.ID
			b.MD5 = strings.ToUpper(strings.TrimSpace(b.MD5))
			if b.FileName == "" {
				return fmt.Errorf("%w: system %q has a BIOS entry without a file name", ErrInvalidTable, s.ID)
			}
		}
	}
	for i, ext := range t.CDExtensions {
		t.CDExtensions[i] = normalizeExt(ext)
	}
	return nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
