package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/store"
)

// contextData is the JSON blob stored per session.
type contextData struct {
	Messages []store.Message    `json:"messages"`
	Draft    store.BookingDraft `json:"draft"`
}

func (d *DB) FindSession(ctx context.Context, id string) (*store.ConversationSession, error) {
	query := `
		SELECT session_id, booking_state, context_data, created_ts, updated_ts
		FROM conversation_session
		WHERE session_id = $1
	`

	var (
		session store.ConversationSession
		state   string
		data    []byte
	)

	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &state, &data, &session.CreatedTs, &session.UpdatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}

	session.BookingState = store.BookingState(state)

	var cd contextData
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session context")
	}
	session.Messages = cd.Messages
	session.Draft = cd.Draft

	return &session, nil
}

func (d *DB) UpsertSession(ctx context.Context, session *store.ConversationSession) error {
	data, err := json.Marshal(contextData{
		Messages: session.Messages,
		Draft:    session.Draft,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal session context")
	}

	query := `
		INSERT INTO conversation_session (session_id, booking_state, context_data, created_ts, updated_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id)
		DO UPDATE SET
			booking_state = EXCLUDED.booking_state,
			context_data = EXCLUDED.context_data,
			updated_ts = EXCLUDED.updated_ts
	`

	_, err = d.db.ExecContext(ctx, query,
		session.ID, string(session.BookingState), data, session.CreatedTs, session.UpdatedTs)
	if err != nil {
		return errors.Wrap(err, "failed to upsert session")
	}
	return nil
}

func (d *DB) DeleteSessionsBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM conversation_session WHERE updated_ts < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete idle sessions")
	}
	return result.RowsAffected()
}
