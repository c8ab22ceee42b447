// Package memory implements the store driver in process memory.
// Used for development and tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pawdesk/pawdesk/store"
)

type DB struct {
	mu           sync.RWMutex
	sessions     map[string]*store.ConversationSession
	appointments map[string]*store.Appointment
}

// NewDB creates an empty in-memory driver.
func NewDB() *DB {
	return &DB{
		sessions:     make(map[string]*store.ConversationSession),
		appointments: make(map[string]*store.Appointment),
	}
}

func (d *DB) FindSession(_ context.Context, id string) (*store.ConversationSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	session, ok := d.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(session), nil
}

func (d *DB) UpsertSession(_ context.Context, session *store.ConversationSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sessions[session.ID] = cloneSession(session)
	return nil
}

func (d *DB) DeleteSessionsBefore(_ context.Context, cutoff int64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var removed int64
	for id, session := range d.sessions {
		if session.UpdatedTs < cutoff {
			delete(d.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (d *DB) CreateAppointment(_ context.Context, appointment *store.Appointment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	clone := *appointment
	d.appointments[appointment.ID] = &clone
	return nil
}

func (d *DB) FindAppointments(_ context.Context, sessionID string) ([]*store.Appointment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*store.Appointment
	for _, a := range d.appointments {
		if a.SessionID == sessionID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedTs > out[j].CreatedTs
	})
	return out, nil
}

func (d *DB) Close() error {
	return nil
}

func cloneSession(s *store.ConversationSession) *store.ConversationSession {
	clone := *s
	clone.Messages = append([]store.Message(nil), s.Messages...)
	return &clone
}

// Ensure DB implements store.Driver
var _ store.Driver = (*DB)(nil)
