package events

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmunix/romarr/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Apply(db))
	return db
}

// testEvent is a minimal event for bus and log tests.
type testEvent struct {
	BaseEvent
	Message string `json:"message"`
}
