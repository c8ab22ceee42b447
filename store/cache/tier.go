// Package cache implements the tiered response cache that shields the
// upstream text generator, plus the LRU tier it is built from.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Entry is a cached response with its access metadata.
type Entry struct {
	Key         string
	Question    string // original question text, used for fuzzy matching
	Value       []byte
	CreatedAt   time.Time
	TTL         time.Duration
	AccessCount int
	LastAccess  time.Time

	element *list.Element
}

// Expired reports whether the entry's age exceeds its TTL.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Tier is an LRU map of entries with TTL awareness. A capacity of zero means
// unbounded. Expiry is checked lazily on read; CleanupExpired provides the
// periodic sweep.
type Tier struct {
	capacity int
	mu       sync.Mutex

	entries map[string]*Entry
	order   *list.List // front = most recently used
}

// NewTier creates an LRU tier with the given capacity.
func NewTier(capacity int) *Tier {
	return &Tier{
		capacity: capacity,
		entries:  make(map[string]*Entry),
		order:    list.New(),
	}
}

// Get returns a live entry, bumping its recency and access count.
// Expired entries are left in place for stale reads (see GetStale).
func (t *Tier) Get(key string, now time.Time) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || e.Expired(now) {
		return nil, false
	}

	e.AccessCount++
	e.LastAccess = now
	t.order.MoveToFront(e.element)
	return e, true
}

// GetStale returns the entry even when expired, without touching metadata.
func (t *Tier) GetStale(key string) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	return e, ok
}

// Put inserts or replaces an entry. When the tier is at capacity the least
// recently used entry is evicted and returned so the caller can demote or
// discard it.
func (t *Tier) Put(e *Entry) (evicted *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[e.Key]; ok {
		t.remove(existing)
	}

	if t.capacity > 0 && len(t.entries) >= t.capacity {
		evicted = t.removeOldest()
	}

	e.element = t.order.PushFront(e)
	t.entries[e.Key] = e
	return evicted
}

// Remove deletes the entry at key and returns it.
func (t *Tier) Remove(key string) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	t.remove(e)
	return e, true
}

// Len returns the number of resident entries, expired ones included.
func (t *Tier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns a snapshot of all resident entries, most recent first.
func (t *Tier) Entries() []*Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Entry, 0, len(t.entries))
	for el := t.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Entry))
	}
	return out
}

// CleanupExpired removes every expired entry and returns how many were
// dropped.
func (t *Tier) CleanupExpired(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var toDelete []*Entry
	for _, e := range t.entries {
		if e.Expired(now) {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		t.remove(e)
	}
	return len(toDelete)
}

// Clear removes all entries.
func (t *Tier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*Entry)
	t.order.Init()
}

// remove must be called with the lock held.
func (t *Tier) remove(e *Entry) {
	t.order.Remove(e.element)
	delete(t.entries, e.Key)
}

// removeOldest must be called with the lock held.
func (t *Tier) removeOldest() *Entry {
	back := t.order.Back()
	if back == nil {
		return nil
	}
	e := back.Value.(*Entry)
	t.remove(e)
	return e
}
