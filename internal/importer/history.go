package importer

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Event types for history records.
const (
	EventImported   = "imported"
	EventConflicted = "conflicted"
	EventFailed     = "failed"
	EventSubsumed   = "subsumed"
	EventBIOS       = "bios"
	EventArtwork    = "artwork"
	EventJunk       = "junk"
)

// HistoryEntry records the outcome of one item.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	BatchID   string    `json:"batch_id"`
	GameID    *int64    `json:"game_id,omitempty"`
	Event     string    `json:"event"`
	Path      string    `json:"path"` // source path of the item
	Data      string    `json:"data"` // JSON blob
	CreatedAt time.Time `json:"created_at"`
}

// HistoryFilter specifies criteria for listing history.
type HistoryFilter struct {
	BatchID *string
	GameID  *int64
	Event   *string
	Limit   int
}

// HistoryStore persists history records.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Add inserts a new history entry.
func (s *HistoryStore) Add(h *HistoryEntry) error {
	now := time.Now()
	if h.Data == "" {
		h.Data = "{}"
	}
	result, err := s.db.Exec(`
		INSERT INTO history (batch_id, game_id, event, path, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.BatchID, h.GameID, h.Event, h.Path, h.Data, now,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	h.ID = id
	h.CreatedAt = now
	return nil
}

// List returns history entries matching the filter.
// Results are ordered by most recent first.
func (s *HistoryStore) List(f HistoryFilter) ([]*HistoryEntry, error) {
	var conditions []string
	var args []any

	if f.BatchID != nil {
		conditions = append(conditions, "batch_id = ?")
		args = append(args, *f.BatchID)
	}
	if f.GameID != nil {
		conditions = append(conditions, "game_id = ?")
		args = append(args, *f.GameID)
	}
	if f.Event != nil {
		conditions = append(conditions, "event = ?")
		args = append(args, *f.Event)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT id, batch_id, game_id, event, path, data, created_at
		FROM history ` + whereClause + ` ORDER BY created_at DESC, id DESC`

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*HistoryEntry
	for rows.Next() {
		h := &HistoryEntry{}
		if err := rows.Scan(&h.ID, &h.BatchID, &h.GameID, &h.Event, &h.Path, &h.Data, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return results, nil
}
