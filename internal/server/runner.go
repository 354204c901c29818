// Package server runs the long-lived watch mode: an initial import batch,
// then further batches whenever the intake directory changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vmunix/romarr/internal/events"
	"github.com/vmunix/romarr/internal/importer"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is how long the intake directory must stay quiet before a
// batch starts.
const DefaultDebounce = 2 * time.Second

// DefaultUpkeepInterval is how often upkeep tasks run after the first pass.
const DefaultUpkeepInterval = time.Hour

// Importer runs import batches.
type Importer interface {
	Run(ctx context.Context, paths []string) (*importer.BatchResult, error)
	ImportDir() string
}

// Refresher rebuilds the system table snapshot.
type Refresher interface {
	Refresh() error
}

// Config for the watch runner.
type Config struct {
	Debounce       time.Duration
	UpkeepInterval time.Duration
}

// UpkeepFunc removes stale rows and reports how many it removed.
type UpkeepFunc func(ctx context.Context) (int64, error)

type upkeepTask struct {
	name string
	fn   UpkeepFunc
}

// Runner manages the watch-mode components.
type Runner struct {
	importer Importer
	bus      *events.Bus
	systems  Refresher
	config   Config
	logger   *slog.Logger
	upkeep   []upkeepTask
}

// NewRunner creates a new runner. bus and systems may be nil, which
// disables snapshot refreshes.
func NewRunner(imp Importer, bus *events.Bus, systems Refresher, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.UpkeepInterval <= 0 {
		cfg.UpkeepInterval = DefaultUpkeepInterval
	}
	return &Runner{
		importer: imp,
		bus:      bus,
		systems:  systems,
		config:   cfg,
		logger:   logger.With("component", "runner"),
	}
}

// AddUpkeep registers a cleanup task. Tasks run once when Run starts and
// then every UpkeepInterval. Must be called before Run.
func (r *Runner) AddUpkeep(name string, fn UpkeepFunc) {
	r.upkeep = append(r.upkeep, upkeepTask{name: name, fn: fn})
}

// Run imports whatever is already waiting, then watches the intake
// directory. It blocks until the context is canceled or the watcher fails.
func (r *Runner) Run(ctx context.Context) error {
	dir := r.importer.ImportDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create intake directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := r.watchTree(watcher, dir); err != nil {
		return err
	}

	// Buffered so a change during a batch queues exactly one more.
	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.runBatches(ctx, trigger) })
	g.Go(func() error { return r.watch(ctx, watcher, trigger) })
	if len(r.upkeep) > 0 {
		g.Go(func() error { return r.runUpkeep(ctx) })
	}
	if r.bus != nil && r.systems != nil {
		sub := r.bus.Subscribe(events.EventCatalogChanged, 16)
		g.Go(func() error {
			defer r.bus.Unsubscribe(sub)
			return r.refreshSystems(ctx, sub)
		})
	}

	r.logger.Info("watching intake directory", "dir", dir, "debounce", r.config.Debounce)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runner) runBatches(ctx context.Context, trigger <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
		}
		res, err := r.importer.Run(ctx, nil)
		if err != nil {
			// A held lock or a missing catalog is retried on the next change.
			r.logger.Error("import batch failed", "error", err)
			continue
		}
		if len(res.Items) > 0 {
			r.logger.Info("import batch finished",
				"batch_id", res.ID,
				"committed", res.Committed,
				"conflicted", res.Conflicted,
				"failed", res.Failed)
		}
	}
}

func (r *Runner) watch(ctx context.Context, w *fsnotify.Watcher, trigger chan<- struct{}) error {
	timer := time.NewTimer(r.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := r.watchTree(w, ev.Name); err != nil {
						r.logger.Warn("watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			r.logger.Debug("intake change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(r.config.Debounce)

		case <-timer.C:
			select {
			case trigger <- struct{}{}:
			default:
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", "error", err)
		}
	}
}

// watchTree adds root and every non-hidden directory below it.
func (r *Runner) watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (r *Runner) refreshSystems(ctx context.Context, sub <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-sub:
			if !ok {
				return nil
			}
			if err := r.systems.Refresh(); err != nil {
				r.logger.Error("refresh system table", "error", err)
			}
		}
	}
}

func (r *Runner) runUpkeep(ctx context.Context) error {
	ticker := time.NewTicker(r.config.UpkeepInterval)
	defer ticker.Stop()

	for {
		for _, task := range r.upkeep {
			n, err := task.fn(ctx)
			if err != nil {
				r.logger.Warn("upkeep failed", "task", task.name, "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("upkeep", "task", task.name, "removed", n)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
