// Package store provides persistence for conversation sessions and
// appointments, with a cache-aside layer for hot sessions.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/pawdesk/pawdesk/store/cache"
)

const (
	sessionCacheCapacity = 1000
	sessionCacheTTL      = 30 * time.Minute
)

// Store provides access to all persisted objects.
type Store struct {
	driver Driver

	sessionCache *cache.Tier
}

// New creates a new Store on top of driver.
func New(driver Driver) *Store {
	return &Store{
		driver:       driver,
		sessionCache: cache.NewTier(sessionCacheCapacity),
	}
}

// Close releases the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close()
}

// FindSession returns the session or nil when it does not exist.
func (s *Store) FindSession(ctx context.Context, id string) (*ConversationSession, error) {
	if cached := s.sessionFromCache(id); cached != nil {
		return cached, nil
	}

	session, err := s.driver.FindSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session != nil {
		s.cacheSession(session)
	}
	return session, nil
}

// SaveSession creates or replaces the session.
func (s *Store) SaveSession(ctx context.Context, session *ConversationSession) error {
	now := time.Now().Unix()
	if session.CreatedTs == 0 {
		session.CreatedTs = now
	}
	session.UpdatedTs = now

	if err := s.driver.UpsertSession(ctx, session); err != nil {
		return err
	}
	s.cacheSession(session)
	return nil
}

// CreateAppointment persists a finalized booking, assigning an id when absent.
func (s *Store) CreateAppointment(ctx context.Context, appointment *Appointment) error {
	if appointment.ID == "" {
		appointment.ID = shortuuid.New()
	}
	if appointment.CreatedTs == 0 {
		appointment.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateAppointment(ctx, appointment)
}

// FindAppointments lists bookings made in the given session, newest first.
func (s *Store) FindAppointments(ctx context.Context, sessionID string) ([]*Appointment, error) {
	return s.driver.FindAppointments(ctx, sessionID)
}

// CleanupSessions removes sessions idle longer than retention and returns how
// many were removed.
func (s *Store) CleanupSessions(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	return s.driver.DeleteSessionsBefore(ctx, cutoff)
}

func (s *Store) cacheSession(session *ConversationSession) {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Warn("failed to marshal session for cache", "session_id", session.ID, "error", err)
		return
	}
	now := time.Now()
	s.sessionCache.Put(&cache.Entry{
		Key:        session.ID,
		Value:      data,
		CreatedAt:  now,
		TTL:        sessionCacheTTL,
		LastAccess: now,
	})
}

func (s *Store) sessionFromCache(id string) *ConversationSession {
	e, ok := s.sessionCache.Get(id, time.Now())
	if !ok {
		return nil
	}

	var session ConversationSession
	if err := json.Unmarshal(e.Value, &session); err != nil {
		slog.Warn("failed to unmarshal cached session", "session_id", id, "error", err)
		s.sessionCache.Remove(id)
		return nil
	}
	return &session
}
