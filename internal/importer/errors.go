package importer

import "errors"

var (
	// ErrIO indicates a file could not be read or hashed.
	ErrIO = errors.New("i/o error")

	// ErrNoSystemMatched indicates every resolver tier came up empty.
	ErrNoSystemMatched = errors.New("no system matched")

	// ErrAmbiguousSystem indicates several systems matched and no catalogued
	// game disambiguates them.
	ErrAmbiguousSystem = errors.New("ambiguous system")

	// ErrAlreadyImporting indicates another in-flight item holds the same
	// content hash. The file is left for the next batch.
	ErrAlreadyImporting = errors.New("content already importing")

	// ErrCommitFailed indicates the catalog write failed after the file moved.
	ErrCommitFailed = errors.New("catalog commit failed")

	// ErrMoveFailed indicates a file could not be relocated.
	ErrMoveFailed = errors.New("move failed")

	// ErrSourceMissing indicates the file to move no longer exists.
	ErrSourceMissing = errors.New("source file missing")

	// ErrDestinationExists indicates the destination file already exists.
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrDuplicateContent indicates the catalog already holds the same content
	// at another path that still exists.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrNoGameForArtwork indicates no catalogued game matches an image.
	ErrNoGameForArtwork = errors.New("no game matches artwork")

	// ErrAmbiguousArtwork indicates several catalogued games match an image equally.
	ErrAmbiguousArtwork = errors.New("ambiguous artwork match")

	// ErrUnsupportedFile indicates a file kind the pipeline does not import.
	ErrUnsupportedFile = errors.New("unsupported file")

	// ErrPathTraversal indicates a referenced path escapes its directory.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrInvalidTransition indicates a status change the item lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
