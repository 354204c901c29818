package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/metadata"
	"github.com/vmunix/romarr/internal/systems"
	"github.com/vmunix/romarr/pkg/romname"
)

// errNotApplicable is returned by a tier that has nothing to say about an item.
var errNotApplicable = errors.New("tier not applicable")

// tierResult is a tier's verdict. A final result ends resolution; otherwise
// the systems narrow the candidates for later tiers.
type tierResult struct {
	systems []string
	final   bool
}

// resolveState carries one item through the tiers.
type resolveState struct {
	item         *Item
	snap         *systems.Snapshot
	candidates   []string
	hashEvidence bool

	hash    string
	hashErr error
	hashed  bool
}

// identityHash computes the item's identity checksum once. A read failure
// leaves the hash empty so hash tiers step aside.
func (st *resolveState) identityHash() string {
	if !st.hashed {
		st.hashed = true
		st.hash, st.hashErr = st.item.IdentityHash(st.snap)
	}
	return st.hash
}

// strategy is one resolution tier.
type strategy interface {
	name() string
	tryResolve(ctx context.Context, st *resolveState) (tierResult, error)
}

// Resolver determines which systems a candidate file belongs to. It reads
// the system table and the reference database and never touches the
// filesystem beyond hashing.
type Resolver struct {
	tiers []strategy
	log   *slog.Logger
}

// NewResolver returns a resolver with the standard tier order.
func NewResolver(meta MetadataService, log *slog.Logger) *Resolver {
	if meta == nil {
		meta = noMetadata{}
	}
	return &Resolver{
		tiers: []strategy{
			biosTier{},
			uniqueExtensionTier{},
			cdExtensionTier{meta: meta},
			hashTier{meta: meta},
			filenamePatternTier{},
			contentSearchTier{meta: meta},
		},
		log: log.With("component", "resolver"),
	}
}

// Resolve returns the systems item may belong to. More than one system means
// the evidence was ambiguous. ErrNoSystemMatched is returned when no tier
// produced a system.
func (r *Resolver) Resolve(ctx context.Context, snap *systems.Snapshot, item *Item) ([]string, error) {
	st := &resolveState{
		item:       item,
		snap:       snap,
		candidates: snap.SystemsForExtension(item.Ext()),
	}

	for _, t := range r.tiers {
		res, err := t.tryResolve(ctx, st)
		if errors.Is(err, errNotApplicable) {
			continue
		}
		if err != nil {
			r.log.Warn("resolution tier failed", "tier", t.name(), "file", item.Name(), "error", err)
			continue
		}
		if res.final {
			r.log.Debug("resolved", "tier", t.name(), "file", item.Name(), "systems", res.systems)
			return res.systems, nil
		}
		st.candidates = res.systems
	}

	if st.hashErr != nil {
		r.log.Warn("hash unavailable", "file", item.Name(), "error", st.hashErr)
	}
	if len(st.candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSystemMatched, item.Name())
	}
	return st.candidates, nil
}

// ResolveAggregate resolves an item and, when its own evidence is missing or
// ambiguous, narrows using its members. Playlists that replace catalogued
// games prefer those games' system.
func (r *Resolver) ResolveAggregate(ctx context.Context, snap *systems.Snapshot, item *Item) ([]string, error) {
	ids, err := r.Resolve(ctx, snap, item)
	if (err == nil && len(ids) == 1) || len(item.Children) == 0 {
		return ids, err
	}

	if sys := supersededSystem(item.superseded); sys != "" {
		if err != nil || slices.Contains(ids, sys) {
			return []string{sys}, nil
		}
	}

	for _, c := range item.Children {
		childIDs, childErr := r.Resolve(ctx, snap, c)
		if childErr != nil {
			continue
		}
		if err != nil {
			ids, err = childIDs, nil
		} else if narrowed := intersect(ids, childIDs); len(narrowed) > 0 && len(narrowed) < len(ids) {
			ids = narrowed
		}
		if len(ids) == 1 {
			break
		}
	}
	return ids, err
}

func supersededSystem(games []*library.Game) string {
	sys := ""
	for _, g := range games {
		if sys != "" && g.SystemID != sys {
			return ""
		}
		sys = g.SystemID
	}
	return sys
}

func intersect(a, b []string) []string {
	var out []string
	for _, v := range a {
		if slices.Contains(b, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// biosTier short-circuits on a known firmware checksum. A file carrying a
// BIOS name but an unknown checksum still belongs to the name's owners.
type biosTier struct{}

func (biosTier) name() string { return "bios" }

func (biosTier) tryResolve(_ context.Context, st *resolveState) (tierResult, error) {
	if h, err := st.item.Hash(0); err == nil {
		if entries := st.snap.BIOSByMD5(h); len(entries) > 0 {
			return tierResult{systems: biosOwners(entries), final: true}, nil
		}
	}
	if st.item.Kind == KindBIOS {
		if entries := st.snap.BIOSByFileName(st.item.Name()); len(entries) > 0 {
			return tierResult{systems: biosOwners(entries), final: true}, nil
		}
	}
	return tierResult{}, errNotApplicable
}

func biosOwners(entries []systems.BIOSEntry) []string {
	var ids []string
	for _, e := range entries {
		if !slices.Contains(ids, e.SystemID) {
			ids = append(ids, e.SystemID)
		}
	}
	return ids
}

// uniqueExtensionTier accepts an extension only one system uses.
type uniqueExtensionTier struct{}

func (uniqueExtensionTier) name() string { return "unique-extension" }

func (uniqueExtensionTier) tryResolve(_ context.Context, st *resolveState) (tierResult, error) {
	if len(st.candidates) != 1 {
		return tierResult{}, errNotApplicable
	}
	return tierResult{systems: st.candidates, final: true}, nil
}

// cdExtensionTier disambiguates disc images shared by several CD systems,
// first by checksum and then by a per-system name search.
type cdExtensionTier struct {
	meta MetadataService
}

func (cdExtensionTier) name() string { return "cd-extension" }

func (t cdExtensionTier) tryResolve(ctx context.Context, st *resolveState) (tierResult, error) {
	if !st.snap.IsCDExtension(st.item.Ext()) || len(st.candidates) < 2 {
		return tierResult{}, errNotApplicable
	}

	if h := st.identityHash(); h != "" {
		records, err := t.meta.SearchByHash(ctx, h, "")
		if err != nil {
			return tierResult{}, fmt.Errorf("search by hash: %w", err)
		}
		if matched := intersect(st.candidates, metadata.SystemIDs(records)); len(matched) > 0 {
			st.hashEvidence = true
			if len(matched) == 1 {
				return tierResult{systems: matched, final: true}, nil
			}
			return tierResult{systems: matched}, nil
		}
	}

	query := romname.SearchName(st.item.Name())
	var matched []string
	for _, id := range st.candidates {
		records, err := t.meta.SearchByFilename(ctx, query, id)
		if err != nil {
			return tierResult{}, fmt.Errorf("search %s by name: %w", id, err)
		}
		if len(records) > 0 {
			matched = append(matched, id)
		}
	}
	switch len(matched) {
	case 0:
		return tierResult{}, errNotApplicable
	case 1:
		return tierResult{systems: matched, final: true}, nil
	default:
		return tierResult{systems: matched}, nil
	}
}

// hashTier looks the checksum up across every system. Several matching
// systems are returned as a set rather than picking one.
type hashTier struct {
	meta MetadataService
}

func (hashTier) name() string { return "hash" }

func (t hashTier) tryResolve(ctx context.Context, st *resolveState) (tierResult, error) {
	h := st.identityHash()
	if h == "" {
		return tierResult{}, errNotApplicable
	}
	records, err := t.meta.SearchByHash(ctx, h, "")
	if err != nil {
		return tierResult{}, fmt.Errorf("search by hash: %w", err)
	}
	ids := metadata.SystemIDs(records)
	if len(ids) == 0 {
		return tierResult{}, errNotApplicable
	}
	if len(st.candidates) > 0 {
		ids = intersect(st.candidates, ids)
		if len(ids) == 0 {
			return tierResult{}, errNotApplicable
		}
	}
	st.hashEvidence = true
	return tierResult{systems: ids, final: true}, nil
}

// filenamePatternTier matches system names and aliases in the filename.
// It is weak evidence and ignored once a checksum has matched.
type filenamePatternTier struct{}

func (filenamePatternTier) name() string { return "filename-pattern" }

func (filenamePatternTier) tryResolve(_ context.Context, st *resolveState) (tierResult, error) {
	if st.hashEvidence || len(st.candidates) == 0 {
		return tierResult{}, errNotApplicable
	}
	name := strings.ToLower(romname.TrimExt(st.item.Name()))
	var matched []string
	for _, id := range st.candidates {
		if p := st.snap.FilenamePattern(id); p != nil && p.MatchString(name) {
			matched = append(matched, id)
		}
	}
	switch len(matched) {
	case 0:
		return tierResult{}, errNotApplicable
	case 1:
		return tierResult{systems: matched, final: true}, nil
	default:
		return tierResult{systems: matched}, nil
	}
}

// contentSearchTier searches the reference database by normalized name
// within each remaining candidate and keeps every system that answers.
type contentSearchTier struct {
	meta MetadataService
}

func (contentSearchTier) name() string { return "content-search" }

func (t contentSearchTier) tryResolve(ctx context.Context, st *resolveState) (tierResult, error) {
	if len(st.candidates) == 0 {
		return tierResult{}, errNotApplicable
	}
	query := romname.SearchName(st.item.Name())
	if query == "" {
		return tierResult{}, errNotApplicable
	}
	var matched []string
	for _, id := range st.candidates {
		records, err := t.meta.SearchByFilename(ctx, query, id)
		if err != nil {
			return tierResult{}, fmt.Errorf("search %s by name: %w", id, err)
		}
		if len(records) > 0 {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return tierResult{}, errNotApplicable
	}
	return tierResult{systems: matched, final: true}, nil
}
