package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vmunix/romarr/internal/artwork"
	"github.com/vmunix/romarr/internal/config"
	"github.com/vmunix/romarr/internal/events"
	"github.com/vmunix/romarr/internal/importer"
	"github.com/vmunix/romarr/internal/metadata"
	"github.com/vmunix/romarr/internal/migrations"
	"github.com/vmunix/romarr/internal/systems"
	"github.com/vmunix/romarr/pkg/openvgdb"
	_ "modernc.org/sqlite"
)

// app holds the wired components a command needs.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	log      *slog.Logger
	systems  *systems.Provider
	bus      *events.Bus
	events   *events.EventLog
	metadata *metadata.Cache
	importer *importer.Importer

	closers []io.Closer
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return nil, fmt.Errorf("%w (run 'romarr init' to create one)", err)
		}
		path = found
	}
	return config.Load(path)
}

// openDB opens the catalog database and applies the schema.
func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newApp loads config, opens the catalog and wires the importer.
func newApp(console io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := newLogger(cfg.Log, console)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	a := &app{cfg: cfg, log: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	a.db, err = openDB(cfg.Database.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.db)

	a.systems, err = systems.NewProvider(cfg.Library.Root, cfg.Systems.File, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("system table: %w", err)
	}

	a.events = events.NewEventLog(a.db)
	a.bus = events.NewBus(a.events, logger)
	a.closers = append(a.closers, a.bus)

	var source metadata.Source
	if cfg.OpenVGDB.Path != "" {
		client, err := openvgdb.Open(cfg.OpenVGDB.Path, openvgdb.WithLogger(logger))
		if err != nil {
			logger.Warn("reference database unavailable, continuing without it", "path", cfg.OpenVGDB.Path, "error", err)
		} else {
			source = client
			a.closers = append(a.closers, client)
		}
	}
	a.metadata = metadata.NewCache(a.db)
	meta := metadata.NewService(source, a.metadata, a.systems, cfg.OpenVGDB.CacheTTL, logger)

	cache := artwork.NewCache(filepath.Join(cfg.Library.Root, systems.ArtworkDir), cfg.Artwork.MaxDimension, logger)
	fetcher := artwork.NewFetcher(cfg.Artwork.DownloadTimeout)

	a.importer = importer.New(a.db, a.systems, importer.Config{
		LibraryRoot:       cfg.Library.Root,
		ImportDir:         cfg.Library.ImportDir,
		Concurrency:       cfg.Import.Concurrency,
		DeleteJunk:        cfg.Import.DeleteJunk,
		OverwriteMetadata: cfg.Import.OverwriteMetadata,
	}, logger,
		importer.WithMetadata(meta),
		importer.WithArtwork(cache, fetcher),
		importer.WithBus(a.bus),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown", "error", err)
	}
}

