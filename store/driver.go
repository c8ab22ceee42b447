package store

import "context"

// Driver is the persistence backend contract. Implementations live under
// store/db.
type Driver interface {
	// FindSession returns the session or (nil, nil) when it does not exist.
	FindSession(ctx context.Context, id string) (*ConversationSession, error)

	// UpsertSession creates or replaces the session.
	UpsertSession(ctx context.Context, session *ConversationSession) error

	// DeleteSessionsBefore removes sessions not updated since cutoff (unix
	// seconds) and returns how many were removed.
	DeleteSessionsBefore(ctx context.Context, cutoff int64) (int64, error)

	// CreateAppointment persists a finalized booking.
	CreateAppointment(ctx context.Context, appointment *Appointment) error

	// FindAppointments lists bookings made in the given session, newest first.
	FindAppointments(ctx context.Context, sessionID string) ([]*Appointment, error)

	Close() error
}
