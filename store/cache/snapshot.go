package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// SnapshotStore persists cache snapshots. A missing or corrupt snapshot is
// never fatal; the cache simply starts empty.
type SnapshotStore interface {
	Write(blob []byte) error
	// Read returns (nil, nil) when no snapshot exists yet.
	Read() ([]byte, error)
}

// FileSnapshotStore stores snapshots as a single file, written atomically
// via a temp file and rename.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a snapshot store at path, creating parent
// directories as needed.
func NewFileSnapshotStore(path string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create snapshot directory")
	}
	return &FileSnapshotStore{path: path}, nil
}

func (s *FileSnapshotStore) Write(blob []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return errors.Wrap(err, "failed to write snapshot temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace snapshot file")
	}
	return nil
}

func (s *FileSnapshotStore) Read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot file")
	}
	return data, nil
}

// Ensure FileSnapshotStore implements SnapshotStore
var _ SnapshotStore = (*FileSnapshotStore)(nil)

type snapshotEntry struct {
	Key         string        `json:"key"`
	Question    string        `json:"question,omitempty"`
	Value       []byte        `json:"value"`
	CreatedAt   time.Time     `json:"created_at"`
	TTL         time.Duration `json:"ttl"`
	AccessCount int           `json:"access_count"`
	LastAccess  time.Time     `json:"last_access"`
}

type snapshot struct {
	TakenAt time.Time       `json:"taken_at"`
	Hot     []snapshotEntry `json:"hot"`
	Warm    []snapshotEntry `json:"warm"`
}

// writeSnapshot serializes both tiers and hands the blob to the snapshot
// store. Tier locks are not held across the disk write.
func (c *ResponseCache) writeSnapshot() error {
	if c.snapshots == nil {
		return nil
	}

	snap := snapshot{
		TakenAt: c.now(),
		Hot:     toSnapshotEntries(c.hot.Entries()),
		Warm:    toSnapshotEntries(c.warm.Entries()),
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache snapshot")
	}
	return c.snapshots.Write(blob)
}

// restoreSnapshot loads the most recent snapshot and drops anything that
// expired while the process was down.
func (c *ResponseCache) restoreSnapshot() {
	if c.snapshots == nil {
		return
	}

	blob, err := c.snapshots.Read()
	if err != nil {
		slog.Warn("cache snapshot unreadable, starting empty", "error", err)
		return
	}
	if blob == nil {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		slog.Warn("cache snapshot corrupt, starting empty", "error", err)
		return
	}

	now := c.now()
	restored := 0

	// Warm first so that restored hot entries keep hot-tier residency even
	// when capacity overflows cause demotions.
	for i := len(snap.Warm) - 1; i >= 0; i-- {
		if e := fromSnapshotEntry(snap.Warm[i], now); e != nil {
			c.warm.Put(e)
			restored++
		}
	}
	for i := len(snap.Hot) - 1; i >= 0; i-- {
		if e := fromSnapshotEntry(snap.Hot[i], now); e != nil {
			c.putHot(e)
			restored++
		}
	}

	if restored > 0 {
		slog.Info("cache snapshot restored", "entries", restored, "taken_at", snap.TakenAt)
	}
}

func toSnapshotEntries(entries []*Entry) []snapshotEntry {
	out := make([]snapshotEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, snapshotEntry{
			Key:         e.Key,
			Question:    e.Question,
			Value:       e.Value,
			CreatedAt:   e.CreatedAt,
			TTL:         e.TTL,
			AccessCount: e.AccessCount,
			LastAccess:  e.LastAccess,
		})
	}
	return out
}

// fromSnapshotEntry rebuilds an entry, or nil when it already expired.
func fromSnapshotEntry(se snapshotEntry, now time.Time) *Entry {
	e := &Entry{
		Key:         se.Key,
		Question:    se.Question,
		Value:       se.Value,
		CreatedAt:   se.CreatedAt,
		TTL:         se.TTL,
		AccessCount: se.AccessCount,
		LastAccess:  se.LastAccess,
	}
	if e.Expired(now) {
		return nil
	}
	return e
}
