package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/romarr/internal/config"
	"github.com/vmunix/romarr/internal/events"
	"github.com/vmunix/romarr/internal/importer"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "NAME"}, [][]string{{"nes", "Nintendo"}, {"psx"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Nintendo")
	assert.Contains(t, out, "psx")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "romarr.log")
	var console strings.Builder

	logger, closer, err := newLogger(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1, MaxBackups: 1}, &console)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Debug("hidden")
	logger.Info("batch started", "batch_id", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "batch_id=abc")
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, console.String(), "batch started")
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	var console strings.Builder
	_, closer, err := newLogger(config.LogConfig{Level: "info"}, &console)
	require.NoError(t, err)
	assert.Nil(t, closer)
}

func TestOpenDB_AppliesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "romarr.db")
	db, err := openDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'games'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestListConflicts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conflicts")

	files, err := listConflicts(dir)
	require.NoError(t, err, "missing directory is empty")
	assert.Empty(t, files)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	older := filepath.Join(dir, "a.bin")
	newer := filepath.Join(dir, "sub", "b.bin")
	require.NoError(t, os.WriteFile(older, []byte("aa"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), nil, 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	files, err = listConflicts(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, newer, files[0].Path)
	assert.Equal(t, older, files[1].Path)
	assert.Equal(t, int64(2), files[1].Size)
}

func TestAttachReasons(t *testing.T) {
	files := []conflictFile{{Path: "/lib/conflicts/game.bin"}, {Path: "/lib/conflicts/other.bin"}}
	history := []*importer.HistoryEntry{
		{Data: `{"dest": "/lib/conflicts/game.bin", "error": "ambiguous system"}`},
		{Data: `{"dest": "/lib/conflicts/game.bin", "error": "older reason"}`},
		{Data: `not json`},
	}

	attachReasons(files, history)

	assert.Equal(t, "ambiguous system", files[0].Reason, "newest entry wins")
	assert.Empty(t, files[1].Reason)
}

func TestPrintBatch_Empty(t *testing.T) {
	var out strings.Builder
	printBatch(&out, &importer.BatchResult{})
	assert.Equal(t, "Nothing to import\n", out.String())
}

func TestStreamEvents(t *testing.T) {
	ch := make(chan events.Event, 2)
	ch <- &events.ImportConflicted{
		BaseEvent: events.NewBaseEvent(events.EventImportConflicted, events.EntityFile, 0),
		Source:    "/lib/import/game.bin",
		Reason:    "ambiguous system",
	}
	ch <- &events.BatchCompleted{
		BaseEvent:  events.NewBaseEvent(events.EventBatchCompleted, events.EntityBatch, 0),
		BatchID:    "0123456789abcdef",
		Committed:  2,
		DurationMS: 1500,
	}
	close(ch)

	var out bytes.Buffer
	streamEvents(&out, ch)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "import.conflicted")
	assert.Contains(t, lines[0], "/lib/import/game.bin: ambiguous system")
	assert.Contains(t, lines[1], "batch 01234567: 2 committed")
	assert.Contains(t, lines[1], "1.5s")
}
