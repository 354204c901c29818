package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const gameColumns = `id, system_id, title, rom_path, file_name, md5, description, developer,
	publisher, genres, release_date, region, region_id, reference_url, release_id, serial,
	artwork_url, artwork_key, added_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*Game, error) {
	g := &Game{}
	err := row.Scan(&g.ID, &g.SystemID, &g.Title, &g.ROMPath, &g.FileName, &g.MD5,
		&g.Description, &g.Developer, &g.Publisher, &g.Genres, &g.ReleaseDate, &g.Region,
		&g.RegionID, &g.ReferenceURL, &g.ReleaseID, &g.Serial, &g.ArtworkURL, &g.ArtworkKey,
		&g.AddedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func queryGames(q querier, query string, args ...any) ([]*Game, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		results = append(results, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return results, nil
}

func addGame(q querier, g *Game) error {
	now := time.Now()
	if g.FileName == "" {
		g.FileName = filepath.Base(g.ROMPath)
	}
	g.MD5 = strings.ToUpper(g.MD5)
	result, err := q.Exec(`
		INSERT INTO games (system_id, title, rom_path, file_name, md5, description, developer,
			publisher, genres, release_date, region, region_id, reference_url, release_id, serial,
			artwork_url, artwork_key, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.SystemID, g.Title, g.ROMPath, g.FileName, g.MD5, g.Description, g.Developer,
		g.Publisher, g.Genres, g.ReleaseDate, g.Region, g.RegionID, g.ReferenceURL, g.ReleaseID, g.Serial,
		g.ArtworkURL, g.ArtworkKey, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	g.ID = id
	g.AddedAt = now
	g.UpdatedAt = now
	return nil
}

// AddGame inserts a new game. Sets ID, FileName (when empty), AddedAt and
// UpdatedAt. Returns ErrDuplicate when the path or checksum is taken.
func (s *Store) AddGame(g *Game) error { return addGame(s.db, g) }

// AddGame inserts a new game within a transaction.
func (t *Tx) AddGame(g *Game) error { return addGame(t.tx, g) }

func getGame(q querier, id int64) (*Game, error) {
	g, err := scanGame(q.QueryRow(`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, mapSQLiteError(err))
	}
	return g, nil
}

// GetGame retrieves a game by ID.
func (s *Store) GetGame(id int64) (*Game, error) { return getGame(s.db, id) }

// GetGame retrieves a game by ID within a transaction.
func (t *Tx) GetGame(id int64) (*Game, error) { return getGame(t.tx, id) }

func getGameByPath(q querier, path string) (*Game, error) {
	g, err := scanGame(q.QueryRow(`SELECT `+gameColumns+` FROM games WHERE rom_path = ?`, path))
	if err != nil {
		return nil, fmt.Errorf("get game by path %q: %w", path, mapSQLiteError(err))
	}
	return g, nil
}

// GetGameByPath retrieves the game whose primary file is path.
// Returns ErrNotFound if no game is anchored there.
func (s *Store) GetGameByPath(path string) (*Game, error) { return getGameByPath(s.db, path) }

// GetGameByPath retrieves a game by primary path within a transaction.
func (t *Tx) GetGameByPath(path string) (*Game, error) { return getGameByPath(t.tx, path) }

func getGameByMD5(q querier, md5 string) (*Game, error) {
	if md5 == "" {
		return nil, fmt.Errorf("get game by md5: %w", ErrNotFound)
	}
	g, err := scanGame(q.QueryRow(`SELECT `+gameColumns+` FROM games WHERE md5 = ?`, strings.ToUpper(md5)))
	if err != nil {
		return nil, fmt.Errorf("get game by md5 %s: %w", md5, mapSQLiteError(err))
	}
	return g, nil
}

// GetGameByMD5 retrieves the game with the given content checksum.
func (s *Store) GetGameByMD5(md5 string) (*Game, error) { return getGameByMD5(s.db, md5) }

// GetGameByMD5 retrieves a game by checksum within a transaction.
func (t *Tx) GetGameByMD5(md5 string) (*Game, error) { return getGameByMD5(t.tx, md5) }

func updateGame(q querier, g *Game) error {
	now := time.Now()
	if g.FileName == "" {
		g.FileName = filepath.Base(g.ROMPath)
	}
	g.MD5 = strings.ToUpper(g.MD5)
	result, err := q.Exec(`
		UPDATE games SET system_id = ?, title = ?, rom_path = ?, file_name = ?, md5 = ?,
			description = ?, developer = ?, publisher = ?, genres = ?, release_date = ?, region = ?,
			region_id = ?, reference_url = ?, release_id = ?, serial = ?, artwork_url = ?,
			artwork_key = ?, updated_at = ?
		WHERE id = ?`,
		g.SystemID, g.Title, g.ROMPath, g.FileName, g.MD5,
		g.Description, g.Developer, g.Publisher, g.Genres, g.ReleaseDate, g.Region,
		g.RegionID, g.ReferenceURL, g.ReleaseID, g.Serial, g.ArtworkURL,
		g.ArtworkKey, now, g.ID,
	)
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update game %d: %w", g.ID, ErrNotFound)
	}
	g.UpdatedAt = now
	return nil
}

// UpdateGame replaces every mutable field of an existing game.
func (s *Store) UpdateGame(g *Game) error { return updateGame(s.db, g) }

// UpdateGame updates a game within a transaction.
func (t *Tx) UpdateGame(g *Game) error { return updateGame(t.tx, g) }

func deleteGame(q querier, id int64) error {
	// Related files go first so the delete works without foreign_keys enabled.
	if _, err := q.Exec(`DELETE FROM game_files WHERE game_id = ?`, id); err != nil {
		return fmt.Errorf("delete related files of game %d: %w", id, mapSQLiteError(err))
	}
	result, err := q.Exec(`DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete game %d: %w", id, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete game %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteGame removes a game and its related files.
func (s *Store) DeleteGame(id int64) error { return deleteGame(s.db, id) }

// DeleteGame removes a game within a transaction.
func (t *Tx) DeleteGame(id int64) error { return deleteGame(t.tx, id) }

func listGames(q querier, f GameFilter) ([]*Game, int, error) {
	where := ""
	var args []any
	if f.SystemID != nil {
		where = "WHERE system_id = ?"
		args = append(args, *f.SystemID)
	}

	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM games "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}

	query := "SELECT " + gameColumns + " FROM games " + where + " ORDER BY system_id, title, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	results, err := queryGames(q, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// ListGames returns games matching the filter with pagination.
// Returns (results, totalCount, error).
func (s *Store) ListGames(f GameFilter) ([]*Game, int, error) { return listGames(s.db, f) }

// ListGames returns games matching the filter within a transaction.
func (t *Tx) ListGames(f GameFilter) ([]*Game, int, error) { return listGames(t.tx, f) }

// FindGamesByFileName returns games whose primary file name equals name,
// ignoring case, restricted to systems when systems is non-empty.
func (s *Store) FindGamesByFileName(name string, systems []string) ([]*Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE lower(file_name) = lower(?)`
	args := []any{filepath.Base(name)}
	if len(systems) > 0 {
		in, inArgs := inClause(systems)
		query += ` AND system_id IN ` + in
		args = append(args, inArgs...)
	}
	return queryGames(s.db, query+` ORDER BY id`, args...)
}

// FindGamesByFileNameLike returns games whose primary file name contains
// fragment, ignoring case, restricted to systems when systems is non-empty.
func (s *Store) FindGamesByFileNameLike(fragment string, systems []string) ([]*Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE file_name LIKE '%' || ? || '%' ESCAPE '\'`
	args := []any{escapeLike(fragment)}
	if len(systems) > 0 {
		in, inArgs := inClause(systems)
		query += ` AND system_id IN ` + in
		args = append(args, inArgs...)
	}
	return queryGames(s.db, query+` ORDER BY id`, args...)
}

// FindGamesReferencing returns games whose primary file or any related file
// has one of the given base names, ignoring case.
func (s *Store) FindGamesReferencing(names []string) ([]*Game, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(filepath.Base(n))
	}
	in, args := inClause(lowered)
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE lower(file_name) IN ` + in + `
		   OR id IN (SELECT game_id FROM game_files WHERE lower(file_name) IN ` + in + `)
		ORDER BY id`
	return queryGames(s.db, query, append(args, args...)...)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
