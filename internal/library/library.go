// Package library is the game catalog: games, their related files, and BIOS
// entries.
package library

import (
	"time"
)

// Game is a catalogued title anchored to one primary file.
type Game struct {
	ID           int64
	SystemID     string
	Title        string
	ROMPath      string // absolute, unique
	FileName     string // base name of ROMPath
	MD5          string // empty when unknown
	Description  string
	Developer    string
	Publisher    string
	Genres       string
	ReleaseDate  string
	Region       string
	RegionID     *int64
	ReferenceURL string
	ReleaseID    *int64
	Serial       string
	ArtworkURL   string
	ArtworkKey   string
	AddedAt      time.Time
	UpdatedAt    time.Time
}

// RelatedFile is a file belonging to a game besides its primary ROM,
// such as a bin track under a cue sheet.
type RelatedFile struct {
	ID       int64
	GameID   int64
	Path     string
	FileName string
	AddedAt  time.Time
}

// BIOS is a firmware file a system requires. Path is nil until the file
// has been imported.
type BIOS struct {
	ID          int64
	SystemID    string
	FileName    string
	MD5         string
	Size        int64
	Description string
	Path        *string
	UpdatedAt   time.Time
}

// GameFilter specifies criteria for listing games.
type GameFilter struct {
	SystemID *string
	Limit    int
	Offset   int
}
