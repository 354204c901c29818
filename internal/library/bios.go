package library

import (
	"fmt"
	"strings"
	"time"
)

// SyncBIOS inserts or refreshes the expected BIOS entries. Paths of existing
// entries are preserved.
func (s *Store) SyncBIOS(entries []BIOS) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, b := range entries {
		_, err := tx.tx.Exec(`
			INSERT INTO bios (system_id, file_name, md5, size, description, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(system_id, file_name) DO UPDATE SET
				md5 = excluded.md5, size = excluded.size, description = excluded.description,
				updated_at = excluded.updated_at`,
			b.SystemID, b.FileName, strings.ToUpper(b.MD5), b.Size, b.Description, now,
		)
		if err != nil {
			return fmt.Errorf("sync bios %s/%s: %w", b.SystemID, b.FileName, mapSQLiteError(err))
		}
	}
	return tx.Commit()
}

func setBIOSPath(q querier, systemID, fileName, path string) error {
	result, err := q.Exec(`
		UPDATE bios SET path = ?, updated_at = ?
		WHERE system_id = ? AND lower(file_name) = lower(?)`,
		path, time.Now(), systemID, fileName,
	)
	if err != nil {
		return fmt.Errorf("set bios path %s/%s: %w", systemID, fileName, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set bios path %s/%s: %w", systemID, fileName, ErrNotFound)
	}
	return nil
}

// SetBIOSPath records where a BIOS file was placed.
// Returns ErrNotFound if the entry is not known.
func (s *Store) SetBIOSPath(systemID, fileName, path string) error {
	return setBIOSPath(s.db, systemID, fileName, path)
}

// SetBIOSPath records a BIOS location within a transaction.
func (t *Tx) SetBIOSPath(systemID, fileName, path string) error {
	return setBIOSPath(t.tx, systemID, fileName, path)
}

// ListBIOS returns every BIOS entry ordered by system and file name.
func (s *Store) ListBIOS() ([]*BIOS, error) {
	rows, err := s.db.Query(`
		SELECT id, system_id, file_name, md5, size, description, path, updated_at
		FROM bios ORDER BY system_id, file_name`)
	if err != nil {
		return nil, fmt.Errorf("list bios: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*BIOS
	for rows.Next() {
		b := &BIOS{}
		if err := rows.Scan(&b.ID, &b.SystemID, &b.FileName, &b.MD5, &b.Size, &b.Description, &b.Path, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bios: %w", err)
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bios: %w", err)
	}
	return results, nil
}
