// Package openvgdb queries an OpenVGDB SQLite database for release metadata.
package openvgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrUnavailable indicates the database file could not be opened.
var ErrUnavailable = errors.New("openvgdb unavailable")

// RegionUSA is the OpenVGDB region id for USA releases.
const RegionUSA = 21

// Release is one release row joined with its ROM and region.
type Release struct {
	ReleaseID    int64  `json:"release_id"`
	Title        string `json:"title"`
	CoverURL     string `json:"cover_url,omitempty"`
	Region       string `json:"region,omitempty"`
	RegionID     int64  `json:"region_id,omitempty"`
	Description  string `json:"description,omitempty"`
	Developer    string `json:"developer,omitempty"`
	Publisher    string `json:"publisher,omitempty"`
	Genre        string `json:"genre,omitempty"`
	Date         string `json:"date,omitempty"`
	ReferenceURL string `json:"reference_url,omitempty"`
	Serial       string `json:"serial,omitempty"`
	SystemID     int    `json:"system_id"`
}

// Client is a read-only OpenVGDB client.
type Client struct {
	db  *sql.DB
	log *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "openvgdb")
	}
}

// Open opens the database at path read-only.
func Open(path string, opts ...Option) (*Client, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return New(db, opts...), nil
}

// New wraps an already open database.
func New(db *sql.DB, opts ...Option) *Client {
	c := &Client{db: db}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the database.
func (c *Client) Close() error {
	return c.db.Close()
}

const releaseQuery = `
	SELECT rel.releaseID, rel.releaseTitleName, rel.releaseCoverFront, reg.regionName,
		rom.regionID, rel.releaseDescription, rel.releaseDeveloper, rel.releasePublisher,
		rel.releaseGenre, rel.releaseDate, rel.releaseReferenceURL, rom.romSerial, rom.systemID
	FROM ROMs rom
	JOIN RELEASES rel ON rel.romID = rom.romID
	LEFT JOIN REGIONS reg ON reg.regionID = rom.regionID`

// SearchByMD5 returns releases whose ROM checksum is md5. A systemID of 0
// searches every system.
func (c *Client) SearchByMD5(ctx context.Context, md5 string, systemID int) ([]Release, error) {
	query := releaseQuery + ` WHERE rom.romHashMD5 = ?`
	args := []any{strings.ToUpper(md5)}
	if systemID != 0 {
		query += ` AND rom.systemID = ?`
		args = append(args, systemID)
	}
	return c.query(ctx, query+` ORDER BY rel.releaseID`, args...)
}

// SearchByFileName returns releases whose extensionless ROM file name
// contains name. A systemID of 0 searches every system.
func (c *Client) SearchByFileName(ctx context.Context, name string, systemID int) ([]Release, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	query := releaseQuery + ` WHERE rom.romExtensionlessFileName LIKE '%' || ? || '%' ESCAPE '\'`
	args := []any{escapeLike(name)}
	if systemID != 0 {
		query += ` AND rom.systemID = ?`
		args = append(args, systemID)
	}
	return c.query(ctx, query+` ORDER BY rel.releaseID`, args...)
}

func (c *Client) query(ctx context.Context, query string, args ...any) ([]Release, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Release
	for rows.Next() {
		var (
			r                                           Release
			title, cover, region, desc, dev, pub, genre sql.NullString
			date, ref, serial                           sql.NullString
			regionID                                    sql.NullInt64
			systemID                                    sql.NullInt64
		)
		if err := rows.Scan(&r.ReleaseID, &title, &cover, &region, &regionID, &desc, &dev, &pub,
			&genre, &date, &ref, &serial, &systemID); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		r.Title = title.String
		r.CoverURL = cover.String
		r.Region = region.String
		r.RegionID = regionID.Int64
		r.Description = desc.String
		r.Developer = dev.String
		r.Publisher = pub.String
		r.Genre = genre.String
		r.Date = date.String
		r.ReferenceURL = ref.String
		r.Serial = serial.String
		r.SystemID = int(systemID.Int64)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	if c.log != nil {
		c.log.Debug("openvgdb query", "results", len(results))
	}
	return results, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
