package importer

import (
	"context"

	"github.com/vmunix/romarr/internal/metadata"
	"github.com/vmunix/romarr/internal/systems"
)

//go:generate mockgen -destination=mocks/deps.go -package=mocks . MetadataService,ArtworkCache,ArtworkFetcher

// MetadataService looks up reference metadata. An empty systemID searches
// every system.
type MetadataService interface {
	SearchByHash(ctx context.Context, md5, systemID string) ([]metadata.Record, error)
	SearchByFilename(ctx context.Context, name, systemID string) ([]metadata.Record, error)
}

// ArtworkCache stores scaled cover images keyed by content hash.
type ArtworkCache interface {
	WriteScaled(raw []byte) (string, error)
	Exists(key string) bool
	LocalPath(key string) (string, bool)
}

// ArtworkFetcher downloads remote artwork.
type ArtworkFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SnapshotProvider returns the system table for the next batch.
type SnapshotProvider interface {
	Current() *systems.Snapshot
}

// noMetadata is used when no reference database is configured.
type noMetadata struct{}

func (noMetadata) SearchByHash(context.Context, string, string) ([]metadata.Record, error) {
	return nil, nil
}

func (noMetadata) SearchByFilename(context.Context, string, string) ([]metadata.Record, error) {
	return nil, nil
}
