package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/romarr/internal/systems"
	"github.com/vmunix/romarr/pkg/openvgdb"
)

// DefaultTTL is how long reference lookups stay cached.
const DefaultTTL = 24 * time.Hour

// Cache key prefixes
const (
	keyPrefixMD5  = "openvgdb:md5:"
	keyPrefixName = "openvgdb:name:"
)

// Record is reference metadata for one release. Empty strings and nil
// pointers mean the field is unknown.
type Record struct {
	Title        string
	ArtworkURL   string
	Region       string
	RegionID     *int64
	Description  string
	Developer    string
	Publisher    string
	Genres       string
	ReleaseDate  string
	ReferenceURL string
	ReleaseID    *int64
	Serial       string
	SystemID     string // empty when the release's system is not configured
}

// Source is the reference database queried on cache misses.
type Source interface {
	SearchByMD5(ctx context.Context, md5 string, systemID int) ([]openvgdb.Release, error)
	SearchByFileName(ctx context.Context, name string, systemID int) ([]openvgdb.Release, error)
}

// SnapshotProvider returns the current system table.
type SnapshotProvider interface {
	Current() *systems.Snapshot
}

// Service provides cached reference lookups keyed by our system ids.
type Service struct {
	source  Source
	cache   *Cache
	systems SnapshotProvider
	ttl     time.Duration
	log     *slog.Logger
}

// NewService creates a metadata service. A nil source yields a service that
// never finds anything; a nil cache disables caching.
func NewService(source Source, cache *Cache, sys SnapshotProvider, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		source:  source,
		cache:   cache,
		systems: sys,
		ttl:     ttl,
		log:     log.With("component", "metadata"),
	}
}

// SearchByHash returns records whose ROM checksum is md5. An empty systemID
// searches every system.
func (s *Service) SearchByHash(ctx context.Context, md5, systemID string) ([]Record, error) {
	if s.source == nil || md5 == "" {
		return nil, nil
	}
	md5 = strings.ToUpper(md5)
	vgdbID, ok := s.openVGDBID(systemID)
	if !ok {
		return nil, nil
	}

	key := keyPrefixMD5 + md5 + ":" + strconv.Itoa(vgdbID)
	releases, err := cached(ctx, s.cache, s.log, key, s.ttl, func() ([]openvgdb.Release, error) {
		return s.source.SearchByMD5(ctx, md5, vgdbID)
	})
	if err != nil {
		return nil, fmt.Errorf("search by hash: %w", err)
	}
	return s.toRecords(releases), nil
}

// SearchByFilename returns records whose ROM file name contains name. An
// empty systemID searches every system.
func (s *Service) SearchByFilename(ctx context.Context, name, systemID string) ([]Record, error) {
	name = strings.TrimSpace(name)
	if s.source == nil || name == "" {
		return nil, nil
	}
	vgdbID, ok := s.openVGDBID(systemID)
	if !ok {
		return nil, nil
	}

	key := keyPrefixName + strings.ToLower(name) + ":" + strconv.Itoa(vgdbID)
	releases, err := cached(ctx, s.cache, s.log, key, s.ttl, func() ([]openvgdb.Release, error) {
		return s.source.SearchByFileName(ctx, name, vgdbID)
	})
	if err != nil {
		return nil, fmt.Errorf("search by filename: %w", err)
	}
	return s.toRecords(releases), nil
}

// openVGDBID maps our system id to the reference id. "" maps to 0 (all).
func (s *Service) openVGDBID(systemID string) (int, bool) {
	if systemID == "" {
		return 0, true
	}
	sys, ok := s.systems.Current().System(systemID)
	if !ok || sys.OpenVGDBID == 0 {
		s.log.Debug("system has no reference id", "system", systemID)
		return 0, false
	}
	return sys.OpenVGDBID, true
}

func (s *Service) toRecords(releases []openvgdb.Release) []Record {
	if len(releases) == 0 {
		return nil
	}
	snap := s.systems.Current()
	records := make([]Record, 0, len(releases))
	for _, r := range releases {
		rec := Record{
			Title:        r.Title,
			ArtworkURL:   r.CoverURL,
			Region:       r.Region,
			Description:  r.Description,
			Developer:    r.Developer,
			Publisher:    r.Publisher,
			Genres:       r.Genre,
			ReleaseDate:  r.Date,
			ReferenceURL: r.ReferenceURL,
			Serial:       r.Serial,
		}
		if r.RegionID != 0 {
			rec.RegionID = &r.RegionID
		}
		if r.ReleaseID != 0 {
			rec.ReleaseID = &r.ReleaseID
		}
		if sys, ok := snap.SystemByOpenVGDBID(r.SystemID); ok {
			rec.SystemID = sys.ID
		}
		records = append(records, rec)
	}
	return records
}

// SystemIDs returns the distinct configured system ids of records, in order.
func SystemIDs(records []Record) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, r := range records {
		if r.SystemID == "" || seen[r.SystemID] {
			continue
		}
		seen[r.SystemID] = true
		ids = append(ids, r.SystemID)
	}
	return ids
}

// PreferredRecord picks the USA release when there is one, else the first.
func PreferredRecord(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	for _, r := range records {
		if r.Region == "USA" || (r.RegionID != nil && *r.RegionID == openvgdb.RegionUSA) {
			return r, true
		}
	}
	return records[0], true
}
