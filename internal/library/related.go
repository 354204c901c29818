package library

import (
	"fmt"
	"path/filepath"
	"time"
)

func listRelatedFiles(q querier, gameID int64) ([]*RelatedFile, error) {
	rows, err := q.Query(`
		SELECT id, game_id, path, file_name, added_at
		FROM game_files WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list related files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*RelatedFile
	for rows.Next() {
		f := &RelatedFile{}
		if err := rows.Scan(&f.ID, &f.GameID, &f.Path, &f.FileName, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("scan related file: %w", err)
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate related files: %w", err)
	}
	return results, nil
}

// ListRelatedFiles returns the files attached to a game, in insertion order.
func (s *Store) ListRelatedFiles(gameID int64) ([]*RelatedFile, error) {
	return listRelatedFiles(s.db, gameID)
}

// ListRelatedFiles returns related files within a transaction.
func (t *Tx) ListRelatedFiles(gameID int64) ([]*RelatedFile, error) {
	return listRelatedFiles(t.tx, gameID)
}

func replaceRelatedFiles(q querier, gameID int64, paths []string) error {
	if _, err := q.Exec(`DELETE FROM game_files WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("clear related files of game %d: %w", gameID, mapSQLiteError(err))
	}
	now := time.Now()
	for _, p := range paths {
		// A path owned by another game moves to this one.
		_, err := q.Exec(`
			INSERT INTO game_files (game_id, path, file_name, added_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET game_id = excluded.game_id, file_name = excluded.file_name`,
			gameID, p, filepath.Base(p), now,
		)
		if err != nil {
			return fmt.Errorf("insert related file %q: %w", p, mapSQLiteError(err))
		}
	}
	return nil
}

// ReplaceRelatedFiles sets the complete related-file list of a game.
func (s *Store) ReplaceRelatedFiles(gameID int64, paths []string) error {
	return replaceRelatedFiles(s.db, gameID, paths)
}

// ReplaceRelatedFiles sets related files within a transaction.
func (t *Tx) ReplaceRelatedFiles(gameID int64, paths []string) error {
	return replaceRelatedFiles(t.tx, gameID, paths)
}
