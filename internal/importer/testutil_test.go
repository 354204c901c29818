package importer

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/migrations"
	"github.com/vmunix/romarr/internal/systems"
	_ "modernc.org/sqlite"
)

// Checksums of the fixture contents used across tests.
const (
	md5Syscard     = "A51D18555B367397D258CF67D4FAC3D8" // "syscard3 firmware"
	md5ZeldaTrack1 = "48D2BC1E38D6EE7722C565A68600620D" // "zelda track one"
	md5KartFighter = "7B3F3AE8788B3D915C4278045EEF18F5" // "kart fighter rom"
	md5FF7Disc1    = "CAA1CF56E65716273ABE9A9C6C26BC53" // "ff7 disc 1"
	md5Generic     = "51E794F01474F2EACB2E175B1F75085E" // "generic cd"
)

const testSystems = `
cd_extensions = ["cue", "bin", "iso"]

[[system]]
id = "nes"
name = "Nintendo Entertainment System"
short_name = "NES"
extensions = ["nes"]
header_offset = 16
openvgdb_id = 25
aliases = ["nintendo", "famicom"]

[[system]]
id = "psx"
name = "Sony PlayStation"
short_name = "PS1"
extensions = ["cue", "bin", "iso"]
cd_based = true
openvgdb_id = 37

[[system]]
id = "segacd"
name = "Sega CD"
short_name = "SCD"
extensions = ["cue", "bin", "iso"]
cd_based = true

[[system]]
id = "saturn"
name = "Sega Saturn"
extensions = ["cue", "bin", "iso"]
cd_based = true

[[system]]
id = "pce"
name = "PC Engine"
short_name = "PCE"
extensions = ["pce"]

[[system.bios]]
file_name = "syscard3.pce"
md5 = "A51D18555B367397D258CF67D4FAC3D8"

[[system]]
id = "pcecd"
name = "PC Engine CD"
extensions = ["cue"]
cd_based = true

[[system.bios]]
file_name = "syscard3.pce"
md5 = "A51D18555B367397D258CF67D4FAC3D8"
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err, "open db")
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Apply(db), "apply schema")
	return db
}

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot(t *testing.T, root string) *systems.Snapshot {
	t.Helper()
	table, err := systems.ParseTable(testSystems)
	require.NoError(t, err)
	snap, err := systems.NewSnapshot(table, root)
	require.NoError(t, err)
	return snap
}

type staticSnapshots struct {
	snap *systems.Snapshot
}

func (s staticSnapshots) Current() *systems.Snapshot { return s.snap }

// writeFile creates path with content, making parent directories.
func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func addTestGame(t *testing.T, store *library.Store, g *library.Game) *library.Game {
	t.Helper()
	require.NoError(t, store.AddGame(g))
	return g
}
