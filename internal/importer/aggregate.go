package importer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/romarr/internal/cuesheet"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/systems"
	"github.com/vmunix/romarr/pkg/romname"
)

// maxAggregateDepth bounds nesting: a playlist holding cue sheets holding
// tracks.
const maxAggregateDepth = 2

// Aggregator groups multi-file games under one top-level item.
type Aggregator struct {
	catalog *library.Store
	log     *slog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(catalog *library.Store, log *slog.Logger) *Aggregator {
	return &Aggregator{
		catalog: catalog,
		log:     log.With("component", "aggregator"),
	}
}

// aggregation tracks which files have been claimed during one pass.
type aggregation struct {
	snap    *systems.Snapshot
	claimed map[string]bool
	roots   map[string]bool
}

func (ag *aggregation) claim(path string) bool {
	if ag.claimed[path] || ag.roots[path] {
		return false
	}
	ag.claimed[path] = true
	return true
}

// Aggregate builds aggregates over queue and returns the items that remain
// top level. Queue items absorbed into an aggregate are marked subsumed and
// returned separately. Playlists are handled before cue sheets so a cue
// listed by a playlist nests under it.
func (a *Aggregator) Aggregate(ctx context.Context, snap *systems.Snapshot, queue []*Item) (top, subsumed []*Item) {
	ag := &aggregation{
		snap:    snap,
		claimed: make(map[string]bool),
		roots:   make(map[string]bool),
	}

	for _, it := range queue {
		if it.Kind == KindPlaylist && !ag.claimed[it.Source] {
			ag.roots[it.Source] = true
			a.aggregatePlaylist(ctx, ag, it)
		}
	}
	for _, it := range queue {
		if it.isCue() && !ag.claimed[it.Source] && !ag.roots[it.Source] {
			ag.roots[it.Source] = true
			a.attachTracks(ag, it, 0)
		}
	}

	for _, it := range queue {
		if ag.claimed[it.Source] {
			if err := it.Transition(StatusSubsumed); err != nil {
				a.log.Error("subsume item", "file", it.Name(), "error", err)
			}
			subsumed = append(subsumed, it)
			continue
		}
		top = append(top, it)
	}
	return top, subsumed
}

// attachTracks adds the files a cue sheet references as children. Missing
// tracks are skipped so partial sets still move together.
func (a *Aggregator) attachTracks(ag *aggregation, cue *Item, depth int) {
	if depth >= maxAggregateDepth {
		return
	}
	refs, err := cuesheet.ReadReferences(cue.Source)
	if err != nil {
		a.log.Warn("read cue sheet", "file", cue.Name(), "error", err)
		return
	}
	dir := filepath.Dir(cue.Source)
	for _, ref := range refs {
		path, ok := a.locate(dir, ref)
		if !ok {
			a.log.Debug("referenced track missing", "cue", cue.Name(), "track", ref)
			continue
		}
		a.attach(ag, cue, path)
	}
}

// aggregatePlaylist gathers a playlist's discs. Games already catalogued
// under the listed names are consolidated into the playlist's directory in
// parallel with the on-disk scan.
func (a *Aggregator) aggregatePlaylist(ctx context.Context, ag *aggregation, pl *Item) {
	entries, err := cuesheet.ReadPlaylist(pl.Source)
	if err != nil {
		a.log.Warn("read playlist", "file", pl.Name(), "error", err)
		return
	}
	if len(entries) == 0 {
		a.log.Info("playlist has no entries", "file", pl.Name())
		return
	}
	dir := filepath.Dir(pl.Source)

	type consolidation struct {
		games []*library.Game
		files []string
		err   error
	}
	done := make(chan consolidation, 1)
	go func() {
		games, files, err := a.consolidate(ctx, pl, dir, entries)
		done <- consolidation{games: games, files: files, err: err}
	}()

	a.attachSiblings(ag, pl, dir)

	for _, e := range entries {
		if path, ok := a.locate(dir, e); ok {
			a.attach(ag, pl, path)
		}
	}

	c := <-done
	if c.err != nil {
		a.log.Warn("consolidate catalogued discs", "playlist", pl.Name(), "error", c.err)
	} else {
		pl.superseded = c.games
		for _, f := range c.files {
			a.attach(ag, pl, f)
		}
	}

	// Consolidation may have moved listed discs into place.
	for _, e := range entries {
		if path, ok := a.locate(dir, e); ok && !pl.hasChild(path) {
			a.attach(ag, pl, path)
		}
	}

	for _, child := range pl.Children {
		if child.isCue() {
			a.attachTracks(ag, child, 1)
		}
	}
}

// attachSiblings adds files next to the playlist that share its aggregation
// key.
func (a *Aggregator) attachSiblings(ag *aggregation, pl *Item, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		a.log.Warn("scan playlist directory", "dir", dir, "error", err)
		return
	}
	key := romname.AggregationKey(pl.Name())
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch InferKind(ag.snap, path) {
		case KindArtwork, KindPlaylist, KindUnknown:
			continue
		}
		if romname.AggregationKey(e.Name()) == key {
			a.attach(ag, pl, path)
		}
	}
}

// consolidate moves the files of catalogued games that a playlist lists into
// the playlist's directory. The games are returned so the playlist's commit
// can replace them.
func (a *Aggregator) consolidate(ctx context.Context, pl *Item, dir string, entries []string) ([]*library.Game, []string, error) {
	if a.catalog == nil {
		return nil, nil, nil
	}
	games, err := a.catalog.FindGamesReferencing(entries)
	if err != nil {
		return nil, nil, err
	}

	var superseded []*library.Game
	var files []string
	for _, g := range games {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if g.ROMPath == pl.Source {
			continue
		}
		related, err := a.catalog.ListRelatedFiles(g.ID)
		if err != nil {
			return nil, nil, err
		}
		paths := []string{g.ROMPath}
		for _, r := range related {
			paths = append(paths, r.Path)
		}
		for _, p := range paths {
			dst := filepath.Join(dir, filepath.Base(p))
			if err := MoveFile(p, dst, false); err != nil {
				if errors.Is(err, ErrSourceMissing) || errors.Is(err, ErrDestinationExists) {
					a.log.Debug("skip catalogued disc", "path", p, "error", err)
					continue
				}
				return nil, nil, err
			}
			files = append(files, dst)
		}
		a.log.Info("consolidating catalogued game under playlist", "game_id", g.ID, "title", g.Title, "playlist", pl.Name())
		superseded = append(superseded, g)
	}
	return superseded, files, nil
}

func (a *Aggregator) attach(ag *aggregation, parent *Item, path string) {
	if path == parent.Source || parent.hasChild(path) || !ag.claim(path) {
		return
	}
	parent.Children = append(parent.Children, NewItem(path, InferKind(ag.snap, path)))
}

// locate finds a referenced file in dir, falling back to a case-insensitive
// match. References may not escape dir.
func (a *Aggregator) locate(dir, ref string) (string, bool) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), `\`, "/")
	if ref == "" {
		return "", false
	}
	candidate := filepath.Join(dir, filepath.FromSlash(ref))
	if err := ValidatePath(candidate, dir); err != nil {
		a.log.Warn("ignoring reference outside directory", "ref", ref, "error", err)
		return "", false
	}
	if fileExists(candidate) {
		return candidate, true
	}

	parent := filepath.Dir(candidate)
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", false
	}
	base := filepath.Base(candidate)
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), base) {
			return filepath.Join(parent, e.Name()), true
		}
	}
	return "", false
}
