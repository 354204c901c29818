package systems

import (
	"log/slog"
	"sync/atomic"
)

// Provider hands out the current Snapshot and rebuilds it on demand.
type Provider struct {
	root    string
	file    string
	log     *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewProvider loads the system table (file, or the built-in table when file
// is empty) and builds the first snapshot.
func NewProvider(root, file string, log *slog.Logger) (*Provider, error) {
	p := &Provider{root: root, file: file, log: log.With("component", "systems")}
	if err := p.Refresh(); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the active snapshot.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Refresh rebuilds the snapshot. On error the previous snapshot stays active.
func (p *Provider) Refresh() error {
	table := DefaultTable()
	if p.file != "" {
		loaded, err := LoadTable(p.file)
		if err != nil {
			p.log.Error("system table reload failed", "file", p.file, "error", err)
			return err
		}
		table = loaded
	}
	snap, err := NewSnapshot(table, p.root)
	if err != nil {
		return err
	}
	p.current.Store(snap)
	p.log.Debug("system snapshot refreshed", "systems", len(table.Systems))
	return nil
}
