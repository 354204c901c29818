package importer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/romarr/internal/events"
	"github.com/vmunix/romarr/internal/importer/mocks"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/metadata"
	"go.uber.org/mock/gomock"
)

type testEnv struct {
	root   string
	intake string
	store  *library.Store
	imp    *Importer
	bus    *events.Bus
}

func newTestEnv(t *testing.T, cfg Config, opts ...Option) *testEnv {
	t.Helper()
	root := t.TempDir()
	db := setupTestDB(t)
	bus := events.NewBus(events.NewEventLog(db), testLogger())
	t.Cleanup(func() { _ = bus.Close() })

	cfg.LibraryRoot = root
	opts = append(opts, WithBus(bus))
	imp := New(db, staticSnapshots{snap: testSnapshot(t, root)}, cfg, testLogger(), opts...)
	return &testEnv{
		root:   root,
		intake: filepath.Join(root, "import"),
		store:  library.NewStore(db),
		imp:    imp,
		bus:    bus,
	}
}

func (e *testEnv) run(t *testing.T, paths ...string) *BatchResult {
	t.Helper()
	res, err := e.imp.Run(context.Background(), paths)
	require.NoError(t, err)
	return res
}

func (e *testEnv) gameCount(t *testing.T) int {
	t.Helper()
	_, total, err := e.store.ListGames(library.GameFilter{})
	require.NoError(t, err)
	return total
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImporter_CueSheetWithTracks(t *testing.T) {
	ctrl := gomock.NewController(t)
	meta := mocks.NewMockMetadataService(ctrl)
	meta.EXPECT().SearchByHash(gomock.Any(), md5ZeldaTrack1, gomock.Any()).
		Return([]metadata.Record{{Title: "The Legend of Zelda", SystemID: "psx", Region: "USA"}}, nil).
		AnyTimes()
	meta.EXPECT().SearchByFilename(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	env := newTestEnv(t, Config{}, WithMetadata(meta))
	writeFile(t, filepath.Join(env.intake, "Zelda.cue"), `FILE "Zelda (Track 1).bin" BINARY
FILE "Zelda (Track 2).bin" BINARY
`)
	writeFile(t, filepath.Join(env.intake, "Zelda (Track 1).bin"), "zelda track one")
	writeFile(t, filepath.Join(env.intake, "Zelda (Track 2).bin"), "zelda track two")

	res := env.run(t)

	require.Len(t, res.Items, 1, "one top-level item for the whole disc")
	item := res.Items[0]
	assert.Equal(t, StatusCommitted, item.Status, "err: %v", item.Err)
	assert.Len(t, item.Children, 2)
	assert.Len(t, res.Subsumed, 2)
	assert.Equal(t, 1, res.Committed)
	assert.False(t, res.EncounteredConflicts)

	dir := filepath.Join(env.root, "roms", "psx")
	for _, name := range []string{"Zelda.cue", "Zelda (Track 1).bin", "Zelda (Track 2).bin"} {
		assert.FileExists(t, filepath.Join(dir, name))
		assert.NoFileExists(t, filepath.Join(env.intake, name))
	}

	assert.Equal(t, 1, env.gameCount(t))
	game, err := env.store.GetGameByPath(filepath.Join(dir, "Zelda.cue"))
	require.NoError(t, err)
	assert.Equal(t, "psx", game.SystemID)
	assert.Equal(t, md5ZeldaTrack1, game.MD5)
	assert.Equal(t, "USA", game.Region)
	related, err := env.store.ListRelatedFiles(game.ID)
	require.NoError(t, err)
	assert.Len(t, related, 2)

	history, err := env.imp.history.List(HistoryFilter{BatchID: &res.ID})
	require.NoError(t, err)
	assert.Len(t, history, 3, "one imported and two subsumed rows")
}

func TestImporter_AmbiguousDiscGoesToConflicts(t *testing.T) {
	env := newTestEnv(t, Config{})
	src := writeFile(t, filepath.Join(env.intake, "game.bin"), "generic cd")

	res := env.run(t)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, StatusConflicted, item.Status)
	assert.ErrorIs(t, item.Err, ErrAmbiguousSystem)
	assert.True(t, res.EncounteredConflicts)
	assert.Equal(t, 1, res.Conflicted)
	assert.NoFileExists(t, src)
	assert.Equal(t, "generic cd", readFile(t, filepath.Join(env.root, "conflicts", "game.bin")))
	assert.Equal(t, 0, env.gameCount(t))
}

func TestImporter_ArtworkAfterGames(t *testing.T) {
	env := newTestEnv(t, Config{})
	writeFile(t, filepath.Join(env.intake, "Kart Fighter (Unl).nes"), "HEADERHEADERHEADkart fighter rom")
	art := filepath.Join(env.intake, "Kart Fighter.nes.png")
	require.NoError(t, os.WriteFile(art, pngBytes(t), 0644))

	res := env.run(t)

	require.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Committed)
	assert.NoFileExists(t, art, "consumed artwork is removed")

	game, err := env.store.GetGameByPath(filepath.Join(env.root, "roms", "nes", "Kart Fighter (Unl).nes"))
	require.NoError(t, err)
	assert.Equal(t, md5KartFighter, game.MD5, "header excluded from the checksum")
	require.NotEmpty(t, game.ArtworkKey)
	assert.FileExists(t, filepath.Join(env.root, "artwork", strings.ToUpper(game.ArtworkKey)+".png"))
}

func TestImporter_UnmatchedArtworkGoesToConflicts(t *testing.T) {
	env := newTestEnv(t, Config{})
	art := filepath.Join(env.intake, "Unknown Game.png")
	writeFile(t, art, "whatever")

	res := env.run(t)

	require.Len(t, res.Items, 1)
	assert.ErrorIs(t, res.Items[0].Err, ErrNoGameForArtwork)
	assert.FileExists(t, filepath.Join(env.root, "conflicts", "Unknown Game.png"))
}

func TestImporter_SharedBIOS(t *testing.T) {
	env := newTestEnv(t, Config{})
	src := writeFile(t, filepath.Join(env.intake, "syscard3.pce"), "syscard3 firmware")

	res := env.run(t)

	require.Len(t, res.Items, 1)
	assert.Equal(t, StatusCommitted, res.Items[0].Status)
	assert.NoFileExists(t, src)
	for _, sys := range []string{"pce", "pcecd"} {
		assert.Equal(t, "syscard3 firmware", readFile(t, filepath.Join(env.root, "bios", sys, "syscard3.pce")))
	}

	entries, err := env.store.ListBIOS()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotNil(t, e.Path, e.SystemID)
		assert.Equal(t, filepath.Join(env.root, "bios", e.SystemID, "syscard3.pce"), *e.Path)
	}
	assert.Equal(t, 0, env.gameCount(t), "firmware is not a game")

	history, err := env.imp.history.List(HistoryFilter{BatchID: &res.ID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, EventBIOS, history[0].Event)
}

func TestImporter_Idempotent(t *testing.T) {
	env := newTestEnv(t, Config{})
	writeFile(t, filepath.Join(env.intake, "Kart Fighter (Unl).nes"), "HEADERHEADERHEADkart fighter rom")

	first := env.run(t)
	require.Equal(t, 1, first.Committed)
	dest := first.Items[0].Dest
	info, err := os.Stat(dest)
	require.NoError(t, err)

	second := env.run(t, dest)
	require.Len(t, second.Items, 1)
	assert.Equal(t, StatusCommitted, second.Items[0].Status, "err: %v", second.Items[0].Err)
	assert.Equal(t, dest, second.Items[0].Dest)
	assert.Equal(t, 1, env.gameCount(t))

	after, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, os.SameFile(info, after), "file was not moved")
}

func TestImporter_IdenticalCopyOfCataloguedFile(t *testing.T) {
	env := newTestEnv(t, Config{})
	dest := writeFile(t, filepath.Join(env.root, "roms", "psx", "game.bin"), "generic cd")
	game := addTestGame(t, env.store, &library.Game{SystemID: "psx", Title: "game", ROMPath: dest, MD5: md5Generic})
	info, err := os.Stat(dest)
	require.NoError(t, err)
	src := writeFile(t, filepath.Join(env.intake, "game.bin"), "generic cd")

	res := env.run(t)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, StatusCommitted, item.Status, "err: %v", item.Err)
	assert.Equal(t, dest, item.Dest)
	assert.Equal(t, game.ID, item.GameID)
	assert.False(t, res.EncounteredConflicts)
	assert.NoFileExists(t, src)
	assert.NoFileExists(t, filepath.Join(env.root, "conflicts", "game.bin"))
	assert.Equal(t, 1, env.gameCount(t))

	after, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, os.SameFile(info, after), "library copy was not replaced")
}

func TestImporter_ExactlyOnceForSameContent(t *testing.T) {
	env := newTestEnv(t, Config{Concurrency: 5})
	for i := range 5 {
		writeFile(t, filepath.Join(env.intake, fmt.Sprintf("copy %d.nes", i)), "HEADERHEADERHEADkart fighter rom")
	}

	res := env.run(t)

	require.Len(t, res.Items, 5)
	assert.Equal(t, 1, res.Committed)
	assert.Equal(t, 4, res.Deferred+res.Conflicted)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, env.gameCount(t))

	for _, it := range res.Items {
		switch it.Status {
		case StatusConflicted:
			assert.ErrorIs(t, it.Err, ErrDuplicateContent)
		case StatusFailed:
			assert.ErrorIs(t, it.Err, ErrAlreadyImporting)
			assert.FileExists(t, it.Source, "deferred files stay for the next batch")
		}
	}
}

func TestImporter_JunkAndUnsupportedFiles(t *testing.T) {
	env := newTestEnv(t, Config{DeleteJunk: true})
	junk := writeFile(t, filepath.Join(env.intake, "readme.txt"), "hello")
	nested := writeFile(t, filepath.Join(env.intake, "pack", "notes.txt"), "hello")
	writeFile(t, filepath.Join(env.intake, ".DS_Store"), "mac")
	writeFile(t, filepath.Join(env.intake, ".cache", "game.nes"), "hidden")

	res := env.run(t)

	assert.Equal(t, []string{junk}, res.Junk)
	assert.NoFileExists(t, junk)
	require.Len(t, res.Items, 1, "hidden files are skipped")
	assert.Equal(t, nested, res.Items[0].Source)
	assert.ErrorIs(t, res.Items[0].Err, ErrUnsupportedFile)
	assert.FileExists(t, nested)
}

func TestImporter_JunkKeptByDefault(t *testing.T) {
	env := newTestEnv(t, Config{})
	junk := writeFile(t, filepath.Join(env.intake, "readme.txt"), "hello")

	res := env.run(t)

	assert.Empty(t, res.Junk)
	assert.FileExists(t, junk)
	assert.Equal(t, 1, res.Failed)
}

func TestImporter_PlaylistReplacesCataloguedDisc(t *testing.T) {
	env := newTestEnv(t, Config{})

	oldPath := writeFile(t, filepath.Join(env.root, "roms", "psx", "FF7 (Disc 1).bin"), "ff7 disc 1")
	old := addTestGame(t, env.store, &library.Game{
		SystemID:  "psx",
		Title:     "FF7 (Disc 1)",
		ROMPath:   oldPath,
		MD5:       md5FF7Disc1,
		Developer: "Squaresoft",
	})
	writeFile(t, filepath.Join(env.intake, "FF7.m3u"), "FF7 (Disc 1).bin\nFF7 (Disc 2).bin\n")
	writeFile(t, filepath.Join(env.intake, "FF7 (Disc 2).bin"), "ff7 disc 2")

	res := env.run(t)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	require.Equal(t, StatusCommitted, item.Status, "err: %v", item.Err)

	dir := filepath.Join(env.root, "roms", "psx")
	game, err := env.store.GetGameByPath(filepath.Join(dir, "FF7.m3u"))
	require.NoError(t, err)
	assert.Equal(t, "Squaresoft", game.Developer)
	assert.Equal(t, "FF7", game.Title)

	_, err = env.store.GetGame(old.ID)
	require.ErrorIs(t, err, library.ErrNotFound)
	assert.Equal(t, 1, env.gameCount(t))

	related, err := env.store.ListRelatedFiles(game.ID)
	require.NoError(t, err)
	var paths []string
	for _, r := range related {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{filepath.Join(dir, "FF7 (Disc 1).bin"), filepath.Join(dir, "FF7 (Disc 2).bin")}, paths)
}

func TestImporter_PublishesEvents(t *testing.T) {
	env := newTestEnv(t, Config{})
	changed := env.bus.Subscribe(events.EventCatalogChanged, 4)
	completed := env.bus.Subscribe(events.EventBatchCompleted, 4)
	writeFile(t, filepath.Join(env.intake, "Kart Fighter (Unl).nes"), "HEADERHEADERHEADkart fighter rom")

	var callback *BatchResult
	env.imp.onComplete = func(b *BatchResult) { callback = b }

	res := env.run(t)

	select {
	case e := <-changed:
		cc, ok := e.(*events.CatalogChanged)
		require.True(t, ok)
		assert.Equal(t, res.ID, cc.BatchID)
		assert.Equal(t, 1, cc.Changes)
	case <-time.After(time.Second):
		t.Fatal("no catalog.changed event")
	}
	select {
	case e := <-completed:
		bc, ok := e.(*events.BatchCompleted)
		require.True(t, ok)
		assert.Equal(t, 1, bc.Committed)
	case <-time.After(time.Second):
		t.Fatal("no batch.completed event")
	}
	assert.Same(t, res, callback)
}

func TestImporter_NoCatalogChangeWithoutCommits(t *testing.T) {
	env := newTestEnv(t, Config{})
	changed := env.bus.Subscribe(events.EventCatalogChanged, 4)

	env.run(t)

	select {
	case e := <-changed:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestImporter_CatalogUnavailableIsFatal(t *testing.T) {
	root := t.TempDir()
	db := setupTestDB(t)
	imp := New(db, staticSnapshots{snap: testSnapshot(t, root)}, Config{LibraryRoot: root}, testLogger())
	require.NoError(t, db.Close())

	_, err := imp.Run(context.Background(), nil)
	require.Error(t, err)
}
