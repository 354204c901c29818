package systems

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/vmunix/romarr/pkg/romname"
)

// Library directory names under the root.
const (
	ROMsDir      = "roms"
	BIOSDir      = "bios"
	ConflictsDir = "conflicts"
	ArtworkDir   = "artwork"
	ImportDir    = "import"
)

// Snapshot is an immutable view of the system table bound to a library root.
// A batch takes one snapshot at start and uses it throughout.
type Snapshot struct {
	root       string
	systems    []System
	byID       map[string]*System
	byExt      map[string][]*System
	byOpenVGDB map[int]*System
	cdExts     map[string]bool
	biosByMD5  map[string][]BIOSEntry
	biosByName map[string][]BIOSEntry
	patterns   map[string]*regexp.Regexp
}

// NewSnapshot indexes table for lookups relative to root.
func NewSnapshot(table *Table, root string) (*Snapshot, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidTable)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}

	s := &Snapshot{
		root:       absRoot,
		systems:    slices.Clone(table.Systems),
		byID:       make(map[string]*System, len(table.Systems)),
		byExt:      make(map[string][]*System),
		byOpenVGDB: make(map[int]*System),
		cdExts:     make(map[string]bool),
		biosByMD5:  make(map[string][]BIOSEntry),
		biosByName: make(map[string][]BIOSEntry),
		patterns:   make(map[string]*regexp.Regexp, len(table.Systems)),
	}

	for i := range s.systems {
		sys := &s.systems[i]
		s.byID[sys.ID] = sys
		for _, ext := range sys.Extensions {
			s.byExt[ext] = append(s.byExt[ext], sys)
		}
		if sys.OpenVGDBID != 0 {
			s.byOpenVGDB[sys.OpenVGDBID] = sys
		}
		for _, b := range sys.BIOS {
			if b.MD5 != "" {
				s.biosByMD5[b.MD5] = append(s.biosByMD5[b.MD5], b)
			}
			name := strings.ToLower(b.FileName)
			s.biosByName[name] = append(s.biosByName[name], b)
		}
		s.patterns[sys.ID] = filenamePattern(sys)
	}

	if len(table.CDExtensions) > 0 {
		for _, ext := range table.CDExtensions {
			s.cdExts[ext] = true
		}
	} else {
		for _, sys := range s.systems {
			if !sys.CDBased {
				continue
			}
			for _, ext := range sys.Extensions {
				s.cdExts[ext] = true
			}
		}
	}

	return s, nil
}

// filenamePattern builds a word-bounded pattern over a system's id, names
// and aliases.
func filenamePattern(sys *System) *regexp.Regexp {
	terms := []string{sys.ID}
	if sys.ShortName != "" {
		terms = append(terms, sys.ShortName)
	}
	if sys.Name != "" {
		terms = append(terms, sys.Name)
	}
	terms = append(terms, sys.Aliases...)

	quoted := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		quoted = append(quoted, regexp.QuoteMeta(term))
	}
	// Longest first so "game boy color" wins over "game boy".
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:[^a-z0-9]|$)`)
}

// Root returns the absolute library root.
func (s *Snapshot) Root() string { return s.root }

// Systems returns every configured system in table order.
func (s *Snapshot) Systems() []System {
	return slices.Clone(s.systems)
}

// System returns the system with the given identifier.
func (s *Snapshot) System(id string) (System, bool) {
	sys, ok := s.byID[id]
	if !ok {
		return System{}, false
	}
	return *sys, true
}

// SystemsForExtension returns the ids of systems that accept ext.
func (s *Snapshot) SystemsForExtension(ext string) []string {
	var ids []string
	for _, sys := range s.byExt[normalizeExt(ext)] {
		ids = append(ids, sys.ID)
	}
	return ids
}

// KnownExtension reports whether any system accepts ext.
func (s *Snapshot) KnownExtension(ext string) bool {
	return len(s.byExt[normalizeExt(ext)]) > 0
}

// CDBasedSystems returns the ids of CD-based systems.
func (s *Snapshot) CDBasedSystems() []string {
	var ids []string
	for _, sys := range s.systems {
		if sys.CDBased {
			ids = append(ids, sys.ID)
		}
	}
	return ids
}

// SupportedCDExtensions returns the CD image extensions, sorted.
func (s *Snapshot) SupportedCDExtensions() []string {
	exts := make([]string, 0, len(s.cdExts))
	for ext := range s.cdExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsCDExtension reports whether ext is a CD image extension.
func (s *Snapshot) IsCDExtension(ext string) bool {
	return s.cdExts[normalizeExt(ext)]
}

// HeaderOffsetFor returns the hashing offset for files with ext. When the
// systems accepting ext disagree the offset is 0.
func (s *Snapshot) HeaderOffsetFor(ext string) int64 {
	owners := s.byExt[normalizeExt(ext)]
	if len(owners) == 0 {
		return 0
	}
	offset := owners[0].HeaderOffset
	for _, sys := range owners[1:] {
		if sys.HeaderOffset != offset {
			return 0
		}
	}
	return offset
}

// BIOSEntries returns every BIOS entry across all systems.
func (s *Snapshot) BIOSEntries() []BIOSEntry {
	var entries []BIOSEntry
	for _, sys := range s.systems {
		entries = append(entries, sys.BIOS...)
	}
	return entries
}

// BIOSByMD5 returns the BIOS entries whose checksum is md5.
// Several systems may share one firmware file.
func (s *Snapshot) BIOSByMD5(md5 string) []BIOSEntry {
	return slices.Clone(s.biosByMD5[strings.ToUpper(md5)])
}

// BIOSByFileName returns the BIOS entries named name, case-insensitively.
func (s *Snapshot) BIOSByFileName(name string) []BIOSEntry {
	return slices.Clone(s.biosByName[strings.ToLower(filepath.Base(name))])
}

// SystemByOpenVGDBID maps an OpenVGDB system id to a configured system.
func (s *Snapshot) SystemByOpenVGDBID(id int) (System, bool) {
	sys, ok := s.byOpenVGDB[id]
	if !ok {
		return System{}, false
	}
	return *sys, true
}

// FilenamePattern returns the name pattern for system id, or nil.
func (s *Snapshot) FilenamePattern(id string) *regexp.Regexp {
	return s.patterns[id]
}

// ROMsDirectory returns the ROM directory for system id.
func (s *Snapshot) ROMsDirectory(id string) (string, error) {
	if _, ok := s.byID[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSystem, id)
	}
	return filepath.Join(s.root, ROMsDir, id), nil
}

// BIOSDirectory returns the BIOS directory for system id.
func (s *Snapshot) BIOSDirectory(id string) (string, error) {
	if _, ok := s.byID[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSystem, id)
	}
	return filepath.Join(s.root, BIOSDir, id), nil
}

// ConflictsDirectory returns the holding area for unresolved files.
func (s *Snapshot) ConflictsDirectory() string {
	return filepath.Join(s.root, ConflictsDir)
}

// ArtworkDirectory returns the artwork cache directory.
func (s *Snapshot) ArtworkDirectory() string {
	return filepath.Join(s.root, ArtworkDir)
}

// StripDiscNames removes disc and volume indicators from a filename.
func (s *Snapshot) StripDiscNames(name string) string {
	return romname.StripDiscNames(name)
}
