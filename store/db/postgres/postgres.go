// Package postgres implements the store driver on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/internal/profile"
	"github.com/pawdesk/pawdesk/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the database, verifies connectivity, and applies the schema.
func NewDB(p *profile.Profile) (store.Driver, error) {
	if p == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := &DB{db: db, profile: p}
	if err := driver.migrate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	return driver, nil
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_session (
			session_id TEXT PRIMARY KEY,
			booking_state TEXT NOT NULL DEFAULT 'NONE',
			context_data JSONB NOT NULL,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_session_updated_ts
			ON conversation_session (updated_ts)`,
		`CREATE TABLE IF NOT EXISTS appointment (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			owner_name TEXT NOT NULL,
			pet_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			preferred_date_time TEXT NOT NULL,
			scheduled_at TIMESTAMPTZ NOT NULL,
			slot_key TEXT NOT NULL,
			status TEXT NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointment_session_id
			ON appointment (session_id)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration: %.40s", stmt)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Ensure DB implements store.Driver
var _ store.Driver = (*DB)(nil)
