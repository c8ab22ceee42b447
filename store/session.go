package store

import "time"

// BookingState identifies which booking field the next user message is
// expected to carry. StateNone means no booking flow is in progress.
type BookingState string

const (
	StateNone                 BookingState = "NONE"
	StateAwaitingOwnerName    BookingState = "AWAITING_OWNER_NAME"
	StateAwaitingPetName      BookingState = "AWAITING_PET_NAME"
	StateAwaitingPhone        BookingState = "AWAITING_PHONE"
	StateAwaitingDateTime     BookingState = "AWAITING_DATE_TIME"
	StateAwaitingConfirmation BookingState = "AWAITING_CONFIRMATION"
)

// MessageRole is the author of a conversation turn.
type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleBot  MessageRole = "bot"
)

// Message is a single conversation turn.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedTs int64       `json:"created_ts"`
}

// BookingDraft is the partially collected appointment record. Fields populate
// monotonically as the dialogue advances and are cleared on cancel or restart.
type BookingDraft struct {
	OwnerName         string    `json:"owner_name,omitempty"`
	PetName           string    `json:"pet_name,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	PreferredDateTime string    `json:"preferred_date_time,omitempty"`
	ScheduledAt       time.Time `json:"scheduled_at,omitzero"`
	SlotKey           string    `json:"slot_key,omitempty"`
}

// Empty reports whether no field has been collected yet.
func (d *BookingDraft) Empty() bool {
	return d.OwnerName == "" && d.PetName == "" && d.Phone == "" &&
		d.PreferredDateTime == "" && d.SlotKey == "" && d.ScheduledAt.IsZero()
}

// ConversationSession is one chat session with its booking progress.
type ConversationSession struct {
	ID           string       `json:"id"`
	Messages     []Message    `json:"messages"`
	BookingState BookingState `json:"booking_state"`
	Draft        BookingDraft `json:"draft"`
	CreatedTs    int64        `json:"created_ts"`
	UpdatedTs    int64        `json:"updated_ts"`
}

// Append adds a turn to the session transcript.
func (s *ConversationSession) Append(role MessageRole, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedTs: now.Unix(),
	})
}

// RecentMessages returns the last n turns, oldest first.
func (s *ConversationSession) RecentMessages(n int) []Message {
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// ResetBooking aborts any in-progress flow and clears the draft.
func (s *ConversationSession) ResetBooking() {
	s.BookingState = StateNone
	s.Draft = BookingDraft{}
}
