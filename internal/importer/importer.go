// Package importer classifies files dropped into the intake directory and
// consolidates them into the game library: system resolution, multi-file
// aggregation, placement, and catalog commit.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/vmunix/romarr/internal/artwork"
	"github.com/vmunix/romarr/internal/events"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/systems"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of items processed in parallel.
const DefaultConcurrency = 3

const (
	lockFileName   = ".romarr.lock"
	lockRetryDelay = 250 * time.Millisecond
)

// Importer runs import batches over the library.
type Importer struct {
	catalog    *library.Store
	history    *HistoryStore
	snapshots  SnapshotProvider
	resolver   *Resolver
	aggregator *Aggregator
	placer     *Placer
	committer  *Committer
	artwork    *ArtworkImporter
	registry   *HashRegistry
	bus        *events.Bus // nil if not configured
	onComplete func(*BatchResult)
	cfg        Config
	lock       *flock.Flock
	mu         sync.Mutex
	log        *slog.Logger
}

// Config for the importer.
type Config struct {
	LibraryRoot       string
	ImportDir         string // defaults to <LibraryRoot>/import
	Concurrency       int
	DeleteJunk        bool // remove unrecognized files directly in ImportDir
	OverwriteMetadata bool
}

type options struct {
	meta       MetadataService
	art        ArtworkCache
	fetcher    ArtworkFetcher
	bus        *events.Bus
	onComplete func(*BatchResult)
}

// Option configures optional collaborators.
type Option func(*options)

// WithMetadata enables reference database lookups.
func WithMetadata(m MetadataService) Option {
	return func(o *options) { o.meta = m }
}

// WithArtwork sets the artwork cache and the downloader for remote covers.
// A nil fetcher disables downloads.
func WithArtwork(cache ArtworkCache, fetcher ArtworkFetcher) Option {
	return func(o *options) {
		o.art = cache
		o.fetcher = fetcher
	}
}

// WithBus publishes batch events.
func WithBus(b *events.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithCompletion registers a callback run after each batch.
func WithCompletion(fn func(*BatchResult)) Option {
	return func(o *options) { o.onComplete = fn }
}

// New creates an importer.
func New(db *sql.DB, snapshots SnapshotProvider, cfg Config, log *slog.Logger, opts ...Option) *Importer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ImportDir == "" {
		cfg.ImportDir = filepath.Join(cfg.LibraryRoot, systems.ImportDir)
	}
	if o.art == nil {
		o.art = artwork.NewCache(filepath.Join(cfg.LibraryRoot, systems.ArtworkDir), artwork.DefaultMaxDimension, log)
	}

	catalog := library.NewStore(db)
	return &Importer{
		catalog:    catalog,
		history:    NewHistoryStore(db),
		snapshots:  snapshots,
		resolver:   NewResolver(o.meta, log),
		aggregator: NewAggregator(catalog, log),
		placer:     NewPlacer(catalog, log),
		committer:  NewCommitter(catalog, o.meta, o.art, o.fetcher, cfg.OverwriteMetadata, log),
		artwork:    NewArtworkImporter(catalog, o.art, log),
		registry:   NewHashRegistry(),
		bus:        o.bus,
		onComplete: o.onComplete,
		cfg:        cfg,
		lock:       flock.New(filepath.Join(cfg.LibraryRoot, lockFileName)),
		log:        log.With("component", "importer"),
	}
}

// ImportDir returns the intake directory.
func (i *Importer) ImportDir() string {
	return i.cfg.ImportDir
}

// BatchResult summarizes one batch.
type BatchResult struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []*Item // top-level items in scan order
	Subsumed   []*Item
	Junk       []string

	Committed            int
	Conflicted           int
	Failed               int
	Deferred             int // left in place because the same content was importing
	EncounteredConflicts bool
}

// Run imports paths, expanding directories recursively. With no paths the
// intake directory is scanned. Batches are serialized in-process and across
// processes through a lock file in the library root. Per-item problems are
// recorded on the items; only an unusable catalog or lock fails the batch.
// Once started, items run to completion even if ctx is canceled.
func (i *Importer) Run(ctx context.Context, paths []string) (*BatchResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := os.MkdirAll(i.cfg.LibraryRoot, 0755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}
	locked, err := i.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire library lock: %w", err)
	}
	if !locked {
		return nil, errors.New("library lock held by another process")
	}
	defer func() { _ = i.lock.Unlock() }()

	if err := i.catalog.Ping(); err != nil {
		return nil, fmt.Errorf("catalog unavailable: %w", err)
	}
	snap := i.snapshots.Current()
	if snap == nil {
		return nil, errors.New("no system table loaded")
	}
	if err := i.syncBIOS(snap); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	if len(paths) == 0 {
		paths = []string{i.cfg.ImportDir}
	}
	b := &BatchResult{ID: uuid.NewString(), StartedAt: time.Now()}
	log := i.log.With("batch", b.ID)
	log.Info("batch started", "paths", paths)
	i.publish(ctx, &events.BatchStarted{
		BaseEvent: events.NewBaseEvent(events.EventBatchStarted, events.EntityBatch, 0),
		BatchID:   b.ID,
		Paths:     paths,
	})

	queue := i.scan(snap, paths)
	queue = i.removeJunk(b, queue)
	b.Items, b.Subsumed = i.aggregator.Aggregate(ctx, snap, queue)

	// Games must be in place before artwork is matched against them.
	var primary, art []*Item
	for _, it := range b.Items {
		if it.Kind == KindArtwork {
			art = append(art, it)
		} else {
			primary = append(primary, it)
		}
	}
	i.runPool(primary, func(it *Item) { i.process(ctx, snap, it) })
	i.runPool(art, func(it *Item) { i.processArtwork(snap, it) })

	b.FinishedAt = time.Now()
	b.tally()
	i.record(ctx, b)

	log.Info("batch completed",
		"committed", b.Committed,
		"conflicted", b.Conflicted,
		"failed", b.Failed,
		"deferred", b.Deferred,
		"subsumed", len(b.Subsumed),
		"junk", len(b.Junk),
		"duration", b.FinishedAt.Sub(b.StartedAt))

	if i.onComplete != nil {
		i.onComplete(b)
	}
	return b, nil
}

func (i *Importer) runPool(items []*Item, fn func(*Item)) {
	var g errgroup.Group
	g.SetLimit(i.cfg.Concurrency)
	for _, it := range items {
		g.Go(func() error {
			fn(it)
			return nil
		})
	}
	_ = g.Wait()
}

// process carries one top-level item to a terminal status.
func (i *Importer) process(ctx context.Context, snap *systems.Snapshot, it *Item) {
	if it.Kind == KindUnknown {
		it.fail(StatusFailed, fmt.Errorf("%w: %s", ErrUnsupportedFile, it.Name()))
		return
	}

	if ok, err := i.placer.PlaceBIOS(snap, it); ok {
		if err != nil {
			it.fail(StatusFailed, err)
			return
		}
		i.advance(it, StatusCommitted)
		return
	}

	ids, resolveErr := i.resolver.ResolveAggregate(ctx, snap, it)
	if resolveErr == nil {
		it.setSystems(ids)
		i.advance(it, StatusResolved)
		if len(it.Children) > 0 {
			i.advance(it, StatusAggregated)
		}
	}

	dest := i.placer.Destination(snap, it, resolveErr)
	if dest.Conflict != nil {
		i.conflict(snap, it, dest.Conflict)
		return
	}
	it.setSystems([]string{dest.System})

	md5, err := it.IdentityHash(snap)
	if err != nil {
		it.fail(StatusFailed, fmt.Errorf("%w: %w", ErrIO, err))
		return
	}
	if !i.registry.TryAcquire(md5) {
		it.fail(StatusFailed, fmt.Errorf("%w: %s", ErrAlreadyImporting, it.Name()))
		return
	}
	defer i.registry.Release(md5)

	if dup := i.committer.DuplicateOf(it, md5, filepath.Join(dest.Dir, it.Name())); dup != nil {
		i.conflict(snap, it, fmt.Errorf("%w: catalogued as %s", ErrDuplicateContent, dup.ROMPath))
		return
	}

	deduped, err := i.placer.Dedupe(it, dest.Dir)
	if err != nil {
		it.fail(StatusFailed, err)
		return
	}
	if !deduped {
		if err := i.placer.Move(it, dest.Dir, false); err != nil {
			if errors.Is(err, ErrDestinationExists) {
				i.conflict(snap, it, err)
				return
			}
			it.fail(StatusFailed, err)
			return
		}
	}
	i.advance(it, StatusPlaced)

	// A BIOS-named file with an unknown checksum is placed but not catalogued.
	if it.Kind == KindBIOS {
		i.advance(it, StatusCommitted)
		return
	}

	if _, err := i.committer.Commit(ctx, it, dest.System, md5); err != nil {
		it.fail(StatusFailed, err)
		return
	}
	i.advance(it, StatusCommitted)
}

func (i *Importer) processArtwork(snap *systems.Snapshot, it *Item) {
	if _, err := i.artwork.Import(snap, it); err != nil {
		if errors.Is(err, ErrNoGameForArtwork) || errors.Is(err, ErrAmbiguousArtwork) {
			i.conflict(snap, it, err)
			return
		}
		it.fail(StatusFailed, err)
		return
	}
	i.advance(it, StatusCommitted)
}

// conflict parks the item in the conflicts area.
func (i *Importer) conflict(snap *systems.Snapshot, it *Item, reason error) {
	if err := i.placer.MoveToConflicts(snap, it); err != nil {
		it.fail(StatusFailed, fmt.Errorf("%w (while handling: %v)", err, reason))
		return
	}
	if len(it.superseded) > 0 {
		i.log.Warn("catalogued discs moved to conflicts with their playlist", "playlist", it.Name(), "games", len(it.superseded))
	}
	it.fail(StatusConflicted, reason)
}

func (i *Importer) advance(it *Item, status Status) {
	if err := it.Transition(status); err != nil {
		i.log.Error("item lifecycle", "error", err)
	}
}

// scan expands paths into discovered items, skipping hidden files and
// directories. Each file appears once.
func (i *Importer) scan(snap *systems.Snapshot, paths []string) []*Item {
	var queue []*Item
	seen := make(map[string]bool)
	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		queue = append(queue, NewItem(path, InferKind(snap, path)))
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			i.log.Warn("resolve path", "path", p, "error", err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			i.log.Warn("skipping path", "path", abs, "error", err)
			continue
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				i.log.Warn("walk", "path", path, "error", err)
				return nil
			}
			if path != abs && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			i.log.Warn("walk", "path", abs, "error", err)
		}
	}
	return queue
}

// removeJunk deletes unrecognized files sitting directly in the intake
// directory when enabled, and drops them from the queue.
func (i *Importer) removeJunk(b *BatchResult, queue []*Item) []*Item {
	if !i.cfg.DeleteJunk {
		return queue
	}
	importDir, err := filepath.Abs(i.cfg.ImportDir)
	if err != nil {
		return queue
	}
	kept := queue[:0]
	for _, it := range queue {
		if it.Kind != KindUnknown || filepath.Dir(it.Source) != importDir {
			kept = append(kept, it)
			continue
		}
		if err := os.Remove(it.Source); err != nil {
			i.log.Warn("remove junk", "path", it.Source, "error", err)
			kept = append(kept, it)
			continue
		}
		i.log.Info("removed junk", "path", it.Source)
		b.Junk = append(b.Junk, it.Source)
	}
	return kept
}

func (i *Importer) syncBIOS(snap *systems.Snapshot) error {
	entries := snap.BIOSEntries()
	rows := make([]library.BIOS, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, library.BIOS{
			SystemID:    e.SystemID,
			FileName:    e.FileName,
			MD5:         e.MD5,
			Size:        e.Size,
			Description: e.Description,
		})
	}
	if err := i.catalog.SyncBIOS(rows); err != nil {
		return fmt.Errorf("sync bios table: %w", err)
	}
	return nil
}

func (b *BatchResult) tally() {
	for _, it := range b.Items {
		switch {
		case it.Status == StatusCommitted:
			b.Committed++
		case it.Status == StatusConflicted:
			b.Conflicted++
			b.EncounteredConflicts = true
		case errors.Is(it.Err, ErrAlreadyImporting):
			b.Deferred++
		default:
			b.Failed++
		}
	}
}

// HistoryData is the JSON payload stored with each history row.
type HistoryData struct {
	Kind     string   `json:"kind,omitempty"`
	Dest     string   `json:"dest,omitempty"`
	Systems  []string `json:"systems,omitempty"`
	Children []string `json:"children,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// record writes history rows and publishes item and batch events.
func (i *Importer) record(ctx context.Context, b *BatchResult) {
	changes := 0
	for _, it := range b.Items {
		event := historyEvent(it)
		i.addHistory(b.ID, it, event)

		switch it.Status {
		case StatusCommitted:
			changes++
			entity, id := events.EntityFile, int64(0)
			if it.GameID != 0 {
				entity, id = events.EntityGame, it.GameID
			}
			system := ""
			if len(it.Systems) == 1 {
				system = it.Systems[0]
			}
			i.publish(ctx, &events.ImportCommitted{
				BaseEvent: events.NewBaseEvent(events.EventImportCommitted, entity, id),
				BatchID:   b.ID,
				Kind:      string(it.Kind),
				SystemID:  system,
				Source:    it.Source,
				Dest:      it.Dest,
				Files:     len(it.Files()),
			})
		case StatusConflicted:
			i.publish(ctx, &events.ImportConflicted{
				BaseEvent:  events.NewBaseEvent(events.EventImportConflicted, events.EntityFile, 0),
				BatchID:    b.ID,
				Source:     it.Source,
				Dest:       it.Dest,
				Candidates: it.Systems,
				Reason:     errString(it.Err),
			})
		default:
			i.publish(ctx, &events.ImportFailed{
				BaseEvent: events.NewBaseEvent(events.EventImportFailed, events.EntityFile, 0),
				BatchID:   b.ID,
				Source:    it.Source,
				Reason:    errString(it.Err),
				Retry:     errors.Is(it.Err, ErrAlreadyImporting),
			})
		}
	}
	for _, it := range b.Subsumed {
		i.addHistory(b.ID, it, EventSubsumed)
	}
	for _, path := range b.Junk {
		i.addHistory(b.ID, &Item{Source: path, Kind: KindUnknown}, EventJunk)
	}

	i.publish(ctx, &events.BatchCompleted{
		BaseEvent:            events.NewBaseEvent(events.EventBatchCompleted, events.EntityBatch, 0),
		BatchID:              b.ID,
		Committed:            b.Committed,
		Conflicted:           b.Conflicted,
		Failed:               b.Failed,
		Deferred:             b.Deferred,
		Subsumed:             len(b.Subsumed),
		Junk:                 len(b.Junk),
		EncounteredConflicts: b.EncounteredConflicts,
		DurationMS:           b.FinishedAt.Sub(b.StartedAt).Milliseconds(),
	})
	if changes > 0 {
		i.publish(ctx, &events.CatalogChanged{
			BaseEvent: events.NewBaseEvent(events.EventCatalogChanged, events.EntityBatch, 0),
			BatchID:   b.ID,
			Changes:   changes,
		})
	}
}

func historyEvent(it *Item) string {
	switch it.Status {
	case StatusCommitted:
		switch it.Kind {
		case KindBIOS:
			return EventBIOS
		case KindArtwork:
			return EventArtwork
		}
		return EventImported
	case StatusConflicted:
		return EventConflicted
	default:
		return EventFailed
	}
}

func (i *Importer) addHistory(batchID string, it *Item, event string) {
	data := HistoryData{
		Kind:    string(it.Kind),
		Dest:    it.Dest,
		Systems: it.Systems,
		Error:   errString(it.Err),
	}
	for _, c := range it.Children {
		data.Children = append(data.Children, c.Source)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}
	h := &HistoryEntry{
		BatchID: batchID,
		Event:   event,
		Path:    it.Source,
		Data:    string(raw),
	}
	if it.GameID != 0 {
		h.GameID = &it.GameID
	}
	if err := i.history.Add(h); err != nil {
		i.log.Warn("failed to record history", "path", it.Source, "error", err)
	}
}

func (i *Importer) publish(ctx context.Context, e events.Event) {
	if i.bus == nil {
		return
	}
	if err := i.bus.Publish(ctx, e); err != nil {
		i.log.Warn("publish event", "type", e.EventType(), "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
