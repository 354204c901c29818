package importer

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vmunix/romarr/internal/fingerprint"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/systems"
	"github.com/vmunix/romarr/pkg/romname"
)

// Kind classifies a candidate file by its name.
type Kind string

const (
	KindGame     Kind = "game"
	KindCDImage  Kind = "cd-image"
	KindBIOS     Kind = "bios"
	KindArtwork  Kind = "artwork"
	KindPlaylist Kind = "playlist"
	KindUnknown  Kind = "unknown"
)

var artworkExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

var playlistExtensions = map[string]bool{"m3u": true, "m3u8": true}

// InferKind classifies name using the system table.
func InferKind(snap *systems.Snapshot, name string) Kind {
	ext := romname.Ext(name)
	switch {
	case artworkExtensions[ext]:
		return KindArtwork
	case playlistExtensions[ext]:
		return KindPlaylist
	case len(snap.BIOSByFileName(name)) > 0:
		return KindBIOS
	case snap.IsCDExtension(ext):
		return KindCDImage
	case snap.KnownExtension(ext):
		return KindGame
	default:
		return KindUnknown
	}
}

// Status is an item's position in the import pipeline.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusResolved   Status = "resolved"
	StatusAggregated Status = "aggregated"
	StatusPlaced     Status = "placed"
	StatusCommitted  Status = "committed"
	StatusConflicted Status = "conflicted"
	StatusFailed     Status = "failed"
	StatusSubsumed   Status = "subsumed"
)

// validTransitions defines allowed state transitions.
// Terminal statuses have no entry.
var validTransitions = map[Status][]Status{
	StatusDiscovered: {StatusResolved, StatusPlaced, StatusCommitted, StatusConflicted, StatusFailed, StatusSubsumed},
	StatusResolved:   {StatusAggregated, StatusPlaced, StatusConflicted, StatusFailed},
	StatusAggregated: {StatusPlaced, StatusConflicted, StatusFailed},
	StatusPlaced:     {StatusCommitted, StatusConflicted, StatusFailed},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Item is one file moving through the pipeline. Aggregates own their member
// files as Children; children share the parent's systems and destination
// directory.
type Item struct {
	Source   string
	Dest     string
	Kind     Kind
	Systems  []string
	Children []*Item
	Status   Status
	Err      error
	GameID   int64

	// Games replaced by this item once it commits.
	superseded []*library.Game

	mu     sync.Mutex
	hashes map[int64]string
}

// NewItem returns a discovered item for path.
func NewItem(path string, kind Kind) *Item {
	return &Item{Source: path, Kind: kind, Status: StatusDiscovered}
}

// Name returns the base name of the source file.
func (it *Item) Name() string {
	return filepath.Base(it.Source)
}

// Ext returns the source file's lowercase extension.
func (it *Item) Ext() string {
	return romname.Ext(it.Source)
}

// Transition moves the item to target.
func (it *Item) Transition(target Status) error {
	if !it.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidTransition, it.Status, target, it.Name())
	}
	it.Status = target
	return nil
}

// fail records err and moves the item to a terminal status.
func (it *Item) fail(status Status, err error) {
	if it.Status.CanTransitionTo(status) {
		it.Status = status
	}
	it.Err = err
}

// Hash returns the uppercase MD5 of the source file skipping offset bytes.
// Results are cached per offset.
func (it *Item) Hash(offset int64) (string, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if h, ok := it.hashes[offset]; ok {
		return h, nil
	}
	h, err := fingerprint.File(it.Source, offset)
	if err != nil {
		return "", err
	}
	if it.hashes == nil {
		it.hashes = make(map[int64]string)
	}
	it.hashes[offset] = h
	return h, nil
}

// IdentityHash is the checksum that identifies the item's content in the
// catalog: the first track of a cue sheet, the first member of a playlist,
// or the file itself at its system's header offset.
func (it *Item) IdentityHash(snap *systems.Snapshot) (string, error) {
	if (it.Kind == KindPlaylist || it.isCue()) && len(it.Children) > 0 {
		return it.Children[0].IdentityHash(snap)
	}
	return it.Hash(it.headerOffset(snap))
}

func (it *Item) headerOffset(snap *systems.Snapshot) int64 {
	if len(it.Systems) == 1 {
		if sys, ok := snap.System(it.Systems[0]); ok {
			return sys.HeaderOffset
		}
	}
	return snap.HeaderOffsetFor(it.Ext())
}

func (it *Item) isCue() bool {
	return it.Ext() == "cue"
}

// Files returns the source path of the item followed by every descendant.
func (it *Item) Files() []string {
	files := []string{it.Source}
	for _, c := range it.Children {
		files = append(files, c.Files()...)
	}
	return files
}

// hasChild reports whether path is already a member of the item's tree.
func (it *Item) hasChild(path string) bool {
	for _, c := range it.Children {
		if c.Source == path || c.hasChild(path) {
			return true
		}
	}
	return false
}

// setSystems assigns systems to the item and its descendants.
func (it *Item) setSystems(ids []string) {
	it.Systems = ids
	for _, c := range it.Children {
		c.setSystems(ids)
	}
}
