package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/store"
)

func (d *DB) CreateAppointment(ctx context.Context, appointment *store.Appointment) error {
	query := `
		INSERT INTO appointment
			(id, session_id, owner_name, pet_name, phone, preferred_date_time,
			 scheduled_at, slot_key, status, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := d.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.SessionID,
		appointment.OwnerName,
		appointment.PetName,
		appointment.Phone,
		appointment.PreferredDateTime,
		appointment.ScheduledAt,
		appointment.SlotKey,
		string(appointment.Status),
		appointment.CreatedTs,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create appointment")
	}
	return nil
}

func (d *DB) FindAppointments(ctx context.Context, sessionID string) ([]*store.Appointment, error) {
	query := `
		SELECT id, session_id, owner_name, pet_name, phone, preferred_date_time,
			scheduled_at, slot_key, status, created_ts
		FROM appointment
		WHERE session_id = $1
		ORDER BY created_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}
	defer rows.Close()

	var appointments []*store.Appointment
	for rows.Next() {
		var (
			a      store.Appointment
			status string
		)
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.OwnerName, &a.PetName, &a.Phone,
			&a.PreferredDateTime, &a.ScheduledAt, &a.SlotKey, &status, &a.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan appointment row")
		}
		a.Status = store.AppointmentStatus(status)
		appointments = append(appointments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate appointments")
	}

	return appointments, nil
}
