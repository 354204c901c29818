package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/metadata"
	"github.com/vmunix/romarr/pkg/romname"
)

// Committer records placed items in the catalog.
type Committer struct {
	catalog   *library.Store
	meta      MetadataService
	artwork   ArtworkCache
	fetcher   ArtworkFetcher
	overwrite bool
	log       *slog.Logger
}

// NewCommitter creates a committer. Metadata and artwork collaborators are
// optional; enrichment is skipped without them. When overwrite is set,
// reference metadata replaces fields that already have values.
func NewCommitter(catalog *library.Store, meta MetadataService, art ArtworkCache, fetcher ArtworkFetcher, overwrite bool, log *slog.Logger) *Committer {
	if meta == nil {
		meta = noMetadata{}
	}
	return &Committer{
		catalog:   catalog,
		meta:      meta,
		artwork:   art,
		fetcher:   fetcher,
		overwrite: overwrite,
		log:       log.With("component", "committer"),
	}
}

// DuplicateOf returns a catalogued game holding the same content at another
// path whose file still exists. Games the item replaces do not count, nor
// does a record already at the item's source or destination.
func (c *Committer) DuplicateOf(it *Item, md5, dest string) *library.Game {
	g, err := c.catalog.GetGameByMD5(md5)
	if err != nil {
		return nil
	}
	if g.ROMPath == it.Source || g.ROMPath == dest || it.supersedes(g.ID) {
		return nil
	}
	if !fileExists(g.ROMPath) {
		return nil
	}
	return g
}

// Commit writes the catalog record for a placed item. A record already at
// the destination only has its member files refreshed. Enrichment failures
// are logged and ignored. Any catalog error is wrapped in ErrCommitFailed;
// the moved files stay where they are.
func (c *Committer) Commit(ctx context.Context, it *Item, system, md5 string) (*library.Game, error) {
	game, err := c.commit(ctx, it, system, md5)
	if err != nil {
		c.log.Error("catalog commit failed, files remain moved",
			"file", it.Name(), "dest", it.Dest, "system", system, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	it.GameID = game.ID
	return game, nil
}

func (c *Committer) commit(ctx context.Context, it *Item, system, md5 string) (*library.Game, error) {
	related := it.memberDests()

	existing, err := c.catalog.GetGameByPath(it.Dest)
	switch {
	case err == nil:
		c.log.Debug("already catalogued, refreshing members", "game_id", existing.ID, "dest", it.Dest)
		return existing, c.write(it, existing, related, opRefresh)
	case !errors.Is(err, library.ErrNotFound):
		return nil, fmt.Errorf("lookup by path: %w", err)
	}

	game := &library.Game{
		SystemID: system,
		Title:    romname.Title(it.Dest),
		ROMPath:  it.Dest,
		MD5:      md5,
	}
	for _, old := range it.superseded {
		inherit(game, old)
	}
	c.enrich(ctx, game)
	c.fetchArtwork(ctx, game)

	if prior, err := c.catalog.GetGameByMD5(md5); err == nil && !it.supersedes(prior.ID) {
		// Same content whose old file is gone: the record follows the file.
		c.log.Info("re-pointing catalogued game", "game_id", prior.ID, "from", prior.ROMPath, "to", it.Dest)
		prior.SystemID = system
		prior.ROMPath = it.Dest
		prior.FileName = ""
		inherit(prior, game)
		return prior, c.write(it, prior, related, opUpdate)
	}

	return game, c.write(it, game, related, opCreate)
}

// writeOp selects what write does with the game row itself.
type writeOp int

const (
	opRefresh writeOp = iota // members only
	opUpdate
	opCreate
)

// write persists game and its members in one transaction, first removing
// the games the item supersedes.
func (c *Committer) write(it *Item, game *library.Game, related []string, op writeOp) error {
	tx, err := c.catalog.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, old := range it.superseded {
		if old.ID == game.ID {
			continue
		}
		if err := tx.DeleteGame(old.ID); err != nil && !errors.Is(err, library.ErrNotFound) {
			return fmt.Errorf("delete superseded game %d: %w", old.ID, err)
		}
		c.log.Info("superseded game removed", "game_id", old.ID, "title", old.Title)
	}

	switch op {
	case opCreate:
		if err := tx.AddGame(game); err != nil {
			return fmt.Errorf("add game: %w", err)
		}
	case opUpdate:
		if err := tx.UpdateGame(game); err != nil {
			return fmt.Errorf("update game: %w", err)
		}
	}

	if err := tx.ReplaceRelatedFiles(game.ID, related); err != nil {
		return fmt.Errorf("replace related files: %w", err)
	}
	return tx.Commit()
}

// enrich fills the game from the reference database, by checksum first and
// then by normalized file name.
func (c *Committer) enrich(ctx context.Context, game *library.Game) {
	records, err := c.meta.SearchByHash(ctx, game.MD5, game.SystemID)
	if err != nil {
		c.log.Warn("metadata lookup by hash failed", "path", game.ROMPath, "error", err)
	}
	if len(records) == 0 {
		records, err = c.meta.SearchByFilename(ctx, romname.SearchName(game.ROMPath), game.SystemID)
		if err != nil {
			c.log.Warn("metadata lookup by name failed", "path", game.ROMPath, "error", err)
		}
	}
	rec, ok := metadata.PreferredRecord(records)
	if !ok {
		return
	}
	applyRecord(game, rec, c.overwrite)
}

// fetchArtwork caches the game's remote cover when none is cached yet.
func (c *Committer) fetchArtwork(ctx context.Context, game *library.Game) {
	if c.artwork == nil || c.fetcher == nil || game.ArtworkURL == "" {
		return
	}
	if game.ArtworkKey != "" && c.artwork.Exists(game.ArtworkKey) {
		return
	}
	raw, err := c.fetcher.Fetch(ctx, game.ArtworkURL)
	if err != nil {
		c.log.Warn("artwork download failed", "url", game.ArtworkURL, "error", err)
		return
	}
	key, err := c.artwork.WriteScaled(raw)
	if err != nil {
		c.log.Warn("artwork cache failed", "url", game.ArtworkURL, "error", err)
		return
	}
	game.ArtworkKey = key
}

func applyRecord(g *library.Game, r metadata.Record, overwrite bool) {
	set := func(dst *string, v string) {
		if v != "" && (overwrite || *dst == "") {
			*dst = v
		}
	}
	setID := func(dst **int64, v *int64) {
		if v != nil && (overwrite || *dst == nil) {
			*dst = v
		}
	}
	set(&g.Title, r.Title)
	set(&g.ArtworkURL, r.ArtworkURL)
	set(&g.Region, r.Region)
	setID(&g.RegionID, r.RegionID)
	set(&g.Description, r.Description)
	set(&g.Developer, r.Developer)
	set(&g.Publisher, r.Publisher)
	set(&g.Genres, r.Genres)
	set(&g.ReleaseDate, r.ReleaseDate)
	set(&g.ReferenceURL, r.ReferenceURL)
	setID(&g.ReleaseID, r.ReleaseID)
	set(&g.Serial, r.Serial)
}

// inherit copies descriptive fields from src into the empty fields of dst.
func inherit(dst, src *library.Game) {
	applyRecord(dst, metadata.Record{
		ArtworkURL:   src.ArtworkURL,
		Region:       src.Region,
		RegionID:     src.RegionID,
		Description:  src.Description,
		Developer:    src.Developer,
		Publisher:    src.Publisher,
		Genres:       src.Genres,
		ReleaseDate:  src.ReleaseDate,
		ReferenceURL: src.ReferenceURL,
		ReleaseID:    src.ReleaseID,
		Serial:       src.Serial,
	}, false)
	if dst.ArtworkKey == "" {
		dst.ArtworkKey = src.ArtworkKey
	}
}

// memberDests returns the destinations of every descendant.
func (it *Item) memberDests() []string {
	var dests []string
	for _, c := range it.Children {
		dests = append(dests, c.Dest)
		dests = append(dests, c.memberDests()...)
	}
	return dests
}

func (it *Item) supersedes(gameID int64) bool {
	return slices.ContainsFunc(it.superseded, func(g *library.Game) bool { return g.ID == gameID })
}
