package importer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vmunix/romarr/internal/fingerprint"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/systems"
)

// Placer decides where an item goes and moves its files there.
type Placer struct {
	catalog *library.Store
	log     *slog.Logger
}

// NewPlacer creates a placer.
func NewPlacer(catalog *library.Store, log *slog.Logger) *Placer {
	return &Placer{
		catalog: catalog,
		log:     log.With("component", "placer"),
	}
}

// Destination is where an item's files go. A non-nil Conflict means the
// item belongs in the conflicts area and System is empty.
type Destination struct {
	Dir      string
	System   string
	Conflict error
}

// PlaceBIOS copies a file whose checksum matches known firmware into the BIOS
// directory of every owning system and records the new paths. It reports
// false when the checksum is not a known BIOS. The source is removed once
// every copy succeeded.
func (p *Placer) PlaceBIOS(snap *systems.Snapshot, it *Item) (bool, error) {
	h, err := it.Hash(0)
	if err != nil {
		return false, nil
	}
	entries := snap.BIOSByMD5(h)
	if len(entries) == 0 {
		return false, nil
	}

	type placed struct {
		entry systems.BIOSEntry
		path  string
	}
	var copies []placed
	keepSource := false
	for _, e := range entries {
		dir, err := snap.BIOSDirectory(e.SystemID)
		if err != nil {
			return true, err
		}
		dst := filepath.Join(dir, SanitizeFilename(e.FileName))
		if filepath.Clean(dst) == filepath.Clean(it.Source) {
			keepSource = true
		} else if _, err := CopyFile(it.Source, dst); err != nil {
			return true, err
		}
		copies = append(copies, placed{entry: e, path: dst})
	}

	tx, err := p.catalog.Begin()
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, c := range copies {
		if err := tx.SetBIOSPath(c.entry.SystemID, c.entry.FileName, c.path); err != nil {
			return true, fmt.Errorf("%w: record %s for %s: %w", ErrCommitFailed, c.entry.FileName, c.entry.SystemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return true, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	it.Systems = biosOwners(entries)
	it.Dest = copies[0].path
	if !keepSource {
		if err := os.Remove(it.Source); err != nil {
			p.log.Warn("remove imported bios source", "path", it.Source, "error", err)
		}
	}
	p.log.Info("bios imported", "file", it.Name(), "systems", it.Systems)
	return true, nil
}

// Destination picks the target directory for a resolved item. Several
// systems are narrowed by an existing catalogued game with the same file
// name; otherwise the item is a conflict.
func (p *Placer) Destination(snap *systems.Snapshot, it *Item, resolveErr error) Destination {
	conflicts := Destination{Dir: snap.ConflictsDirectory()}
	if resolveErr != nil {
		conflicts.Conflict = resolveErr
		return conflicts
	}

	system := ""
	switch len(it.Systems) {
	case 0:
		conflicts.Conflict = fmt.Errorf("%w: %s", ErrNoSystemMatched, it.Name())
		return conflicts
	case 1:
		system = it.Systems[0]
	default:
		games, err := p.catalog.FindGamesByFileName(it.Name(), it.Systems)
		if err != nil {
			p.log.Warn("catalog lookup for disambiguation failed", "file", it.Name(), "error", err)
		}
		if len(games) != 1 {
			conflicts.Conflict = fmt.Errorf("%w: %s matches %v", ErrAmbiguousSystem, it.Name(), it.Systems)
			return conflicts
		}
		system = games[0].SystemID
		p.log.Debug("disambiguated by catalogued game", "file", it.Name(), "system", system, "game_id", games[0].ID)
	}

	var dir string
	var err error
	if it.Kind == KindBIOS {
		dir, err = snap.BIOSDirectory(system)
	} else {
		dir, err = snap.ROMsDirectory(system)
	}
	if err != nil {
		conflicts.Conflict = fmt.Errorf("%w: %w", ErrNoSystemMatched, err)
		return conflicts
	}
	return Destination{Dir: dir, System: system}
}

// Move relocates the item and all of its members into dir. Existing files
// are replaced only when overwrite is set. On failure no member is left
// moved.
func (p *Placer) Move(it *Item, dir string, overwrite bool) error {
	dests, err := moveAll(it.Files(), dir, overwrite)
	if err != nil {
		return err
	}
	assignDests(it, dests)
	return nil
}

// Dedupe points the item at identical copies of its files already in dir
// and removes the incoming ones. It reports false, touching nothing, when
// any member is missing from dir or differs from its copy there.
func (p *Placer) Dedupe(it *Item, dir string) (bool, error) {
	srcs := it.Files()
	dests := make([]string, 0, len(srcs))
	for _, src := range srcs {
		dst := filepath.Join(dir, filepath.Base(src))
		if filepath.Clean(src) != filepath.Clean(dst) && !sameContent(src, dst) {
			return false, nil
		}
		dests = append(dests, dst)
	}

	for i, src := range srcs {
		if filepath.Clean(src) == filepath.Clean(dests[i]) {
			continue
		}
		if err := os.Remove(src); err != nil {
			return true, fmt.Errorf("%w: remove duplicate %s: %w", ErrIO, src, err)
		}
	}
	assignDests(it, dests)
	p.log.Info("identical copy already in library", "file", it.Name(), "dest", it.Dest)
	return true, nil
}

func sameContent(a, b string) bool {
	if !fileExists(b) {
		return false
	}
	ha, err := fingerprint.File(a, 0)
	if err != nil {
		return false
	}
	hb, err := fingerprint.File(b, 0)
	return err == nil && ha == hb
}

// MoveToConflicts parks the item in the conflicts area. Existing files
// there are replaced.
func (p *Placer) MoveToConflicts(snap *systems.Snapshot, it *Item) error {
	if err := p.Move(it, snap.ConflictsDirectory(), true); err != nil {
		if errors.Is(err, ErrSourceMissing) {
			return err
		}
		return fmt.Errorf("park in conflicts: %w", err)
	}
	p.log.Info("moved to conflicts", "file", it.Name(), "dest", it.Dest)
	return nil
}

// assignDests walks the item tree in Files order.
func assignDests(it *Item, dests []string) []string {
	it.Dest = dests[0]
	rest := dests[1:]
	for _, c := range it.Children {
		rest = assignDests(c, rest)
	}
	return rest
}
