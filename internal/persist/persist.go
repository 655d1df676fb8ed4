// Package persist mirrors the viewport cache into a key-value store so a
// restarted client can present a warm viewport before its first fetch
// completes. Mirroring is best effort: a missing or failing store degrades
// to a cold start, never to an error.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/syntrixbase/viewcache/internal/paging"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// SchemaVersion is bumped whenever the Snapshot layout changes. A stored
// payload with a different version is treated like an absent one.
const SchemaVersion = 1

// Store is the key-value store contract the mirror writes through.
type Store interface {
	// Get returns the stored payload for key, reporting absence via the
	// bool rather than an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the payload under key, replacing any previous value.
	Set(ctx context.Context, key string, payload []byte) error

	// Close releases store resources.
	Close() error
}

// Snapshot is the serialized cache state: the main collection, its
// pagination, and the server metadata bag. The search overlay is ephemeral
// and deliberately not persisted.
type Snapshot struct {
	Schema     int            `json:"schema"`
	Objects    []model.Record `json:"objects"`
	Pagination paging.State   `json:"pagination"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Mirror serializes cache state to a Store under a fixed key. A nil Mirror
// is valid and does nothing, which is how "persistence disabled" is
// expressed throughout the engine.
type Mirror struct {
	store Store
	key   string
	log   *slog.Logger
}

// NewMirror creates a mirror writing under the given persistence
// identifier.
func NewMirror(store Store, key string) *Mirror {
	return &Mirror{store: store, key: key, log: slog.Default()}
}

// Save writes the snapshot. Failures are logged and swallowed.
func (m *Mirror) Save(ctx context.Context, snap Snapshot) {
	if m == nil {
		return
	}
	snap.Schema = SchemaVersion
	payload, err := json.Marshal(snap)
	if err != nil {
		m.log.Warn("cache snapshot marshal failed", "key", m.key, "error", err)
		return
	}
	if err := m.store.Set(ctx, m.key, payload); err != nil {
		m.log.Warn("cache snapshot write failed", "key", m.key, "error", err)
	}
}

// Load reads and decodes the stored snapshot. Absence, decode failure and
// schema mismatch all report (nil, false): anything but a clean hit is a
// cold start.
func (m *Mirror) Load(ctx context.Context) (*Snapshot, bool) {
	if m == nil {
		return nil, false
	}
	payload, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.log.Warn("cache snapshot read failed", "key", m.key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		m.log.Warn("cache snapshot decode failed", "key", m.key, "error", err)
		return nil, false
	}
	if snap.Schema != SchemaVersion {
		m.log.Info("cache snapshot schema mismatch, ignoring",
			"key", m.key, "stored", snap.Schema, "want", SchemaVersion)
		return nil, false
	}
	return &snap, true
}

// Close closes the underlying store. Safe on nil.
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.store.Close()
}
