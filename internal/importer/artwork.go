package importer

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/systems"
	"github.com/vmunix/romarr/pkg/romname"
)

// ArtworkImporter attaches loose cover images to catalogued games by name.
// "Kart Fighter.nes.png" matches games whose file name contains
// "Kart Fighter", restricted to systems using the ".nes" extension.
type ArtworkImporter struct {
	catalog *library.Store
	cache   ArtworkCache
	log     *slog.Logger
}

// NewArtworkImporter creates an artwork importer.
func NewArtworkImporter(catalog *library.Store, cache ArtworkCache, log *slog.Logger) *ArtworkImporter {
	return &ArtworkImporter{
		catalog: catalog,
		cache:   cache,
		log:     log.With("component", "artwork"),
	}
}

// Match returns the single game an image file belongs to.
func (a *ArtworkImporter) Match(snap *systems.Snapshot, it *Item) (*library.Game, error) {
	base := romname.TrimExt(it.Name())
	var hint []string
	if ext := romname.Ext(base); ext != "" && snap.KnownExtension(ext) {
		hint = snap.SystemsForExtension(ext)
		base = romname.TrimExt(base)
	}
	query := romname.StripTags(base)
	if query == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoGameForArtwork, it.Name())
	}

	games, err := a.catalog.FindGamesByFileNameLike(query, hint)
	if err != nil {
		return nil, fmt.Errorf("find games for artwork: %w", err)
	}
	switch len(games) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoGameForArtwork, it.Name())
	case 1:
		return games[0], nil
	}

	var exact []*library.Game
	for _, g := range games {
		if strings.EqualFold(romname.StripTags(romname.TrimExt(g.FileName)), query) {
			exact = append(exact, g)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	titles := make([]string, len(games))
	for i, g := range games {
		titles[i] = romname.StripTags(romname.TrimExt(g.FileName))
	}
	m := romname.MatchTitle(query, titles)
	if m.Index < 0 || m.Tied || m.Confidence < romname.ConfidenceMedium {
		return nil, fmt.Errorf("%w: %s matches %d games", ErrAmbiguousArtwork, it.Name(), len(games))
	}
	return games[m.Index], nil
}

// Import caches the image for its matching game and removes the source.
func (a *ArtworkImporter) Import(snap *systems.Snapshot, it *Item) (*library.Game, error) {
	game, err := a.Match(snap, it)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(it.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: read artwork: %w", ErrIO, err)
	}
	key, err := a.cache.WriteScaled(raw)
	if err != nil {
		return nil, err
	}
	game.ArtworkKey = key
	if err := a.catalog.UpdateGame(game); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	if path, ok := a.cache.LocalPath(key); ok {
		it.Dest = path
	}
	it.Systems = []string{game.SystemID}
	it.GameID = game.ID
	if err := os.Remove(it.Source); err != nil {
		a.log.Warn("remove imported artwork source", "path", it.Source, "error", err)
	}
	a.log.Info("artwork attached", "file", it.Name(), "game_id", game.ID, "title", game.Title)
	return game, nil
}
