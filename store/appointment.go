package store

import "time"

// AppointmentStatus is the lifecycle state of a finalized booking.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a finalized booking. Immutable except for Status.
type Appointment struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	OwnerName         string            `json:"owner_name"`
	PetName           string            `json:"pet_name"`
	Phone             string            `json:"phone"`
	PreferredDateTime string            `json:"preferred_date_time"`
	ScheduledAt       time.Time         `json:"scheduled_at"`
	SlotKey           string            `json:"slot_key"`
	Status            AppointmentStatus `json:"status"`
	CreatedTs         int64             `json:"created_ts"`
}
