package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pawdesk/pawdesk/plugin/timeparse"
	"github.com/pawdesk/pawdesk/server/scheduling"
	"github.com/pawdesk/pawdesk/store"
)

// Questions asked at each collection step.
const (
	msgAskOwnerName = "I'd be happy to help you book an appointment! May I have your full name?"
	msgAskPetName   = "What's your pet's name?"
	msgAskPhone     = "Best phone number to reach you?"
	msgAskDateTime  = "When would you like to come in? You can say things like \"tomorrow at 2pm\" or \"next Friday\"."
	msgCancelled    = "No problem, I've cancelled the booking. Is there anything else I can help with?"
)

// unavailableReasons maps slot manager verdicts to user-facing explanations.
var unavailableReasons = map[string]string{
	"outside-hours":   "We're closed at that time.",
	"slot-taken":      "That time slot is already taken.",
	"buffer-conflict": "That time is too close to another appointment.",
	"day-full":        "That day is fully booked.",
}

// BookingFlow drives the multi-turn field-collection dialogue. One instance
// serves all sessions; per-session state lives on the session itself.
type BookingFlow struct {
	slots *scheduling.Manager
	times timeparse.TimeService
}

// NewBookingFlow creates the booking state machine.
func NewBookingFlow(slots *scheduling.Manager, times timeparse.TimeService) *BookingFlow {
	return &BookingFlow{slots: slots, times: times}
}

// Start enters the flow and returns the first question.
func (f *BookingFlow) Start(session *store.ConversationSession) string {
	session.Draft = store.BookingDraft{}
	session.BookingState = store.StateAwaitingOwnerName
	return msgAskOwnerName
}

// Abort resets the flow, releasing any held slot.
func (f *BookingFlow) Abort(session *store.ConversationSession) string {
	if session.Draft.SlotKey != "" {
		f.slots.ReleaseReservation(session.Draft.SlotKey, session.ID)
	}
	session.ResetBooking()
	return msgCancelled
}

// ProcessResponse validates the incoming text against the field the current
// state is waiting for and advances on success. Validation failures re-ask
// the same question without a state change.
func (f *BookingFlow) ProcessResponse(ctx context.Context, session *store.ConversationSession, message string, now time.Time) string {
	switch session.BookingState {
	case store.StateAwaitingOwnerName:
		name, complaint := validateOwnerName(message)
		if complaint != "" {
			return complaint
		}
		session.Draft.OwnerName = name
		session.BookingState = store.StateAwaitingPetName
		return msgAskPetName

	case store.StateAwaitingPetName:
		name, complaint := validatePetName(message)
		if complaint != "" {
			return complaint
		}
		session.Draft.PetName = name
		session.BookingState = store.StateAwaitingPhone
		return msgAskPhone

	case store.StateAwaitingPhone:
		phone, complaint := validatePhone(message)
		if complaint != "" {
			return complaint
		}
		session.Draft.Phone = phone
		session.BookingState = store.StateAwaitingDateTime
		return msgAskDateTime

	case store.StateAwaitingDateTime:
		return f.handleDateTime(ctx, session, message, now)

	default:
		// Unknown state means stale persisted data; restart cleanly.
		return f.Start(session)
	}
}

// handleDateTime validates the instant, checks real-world feasibility, and
// only then places a hold and advances to confirmation.
func (f *BookingFlow) handleDateTime(ctx context.Context, session *store.ConversationSession, message string, now time.Time) string {
	resolved, complaint := validateDateTime(ctx, f.times, message, now)
	if complaint != "" {
		return complaint
	}

	verdict := f.slots.CheckAvailability(resolved)
	if !verdict.Available {
		return unavailableMessage(verdict)
	}

	key, err := f.slots.ReserveSlot(resolved, session.ID)
	if err != nil {
		// Lost the bucket between check and reserve; re-ask.
		return unavailableMessage(f.slots.CheckAvailability(resolved))
	}

	session.Draft.PreferredDateTime = strings.TrimSpace(message)
	session.Draft.ScheduledAt = resolved
	session.Draft.SlotKey = key
	session.BookingState = store.StateAwaitingConfirmation

	return confirmationSummary(&session.Draft, verdict.Staff)
}

func unavailableMessage(verdict scheduling.Availability) string {
	var b strings.Builder
	explanation, ok := unavailableReasons[verdict.Reason]
	if !ok {
		explanation = "That time isn't available."
	}
	b.WriteString(explanation)

	if len(verdict.Alternatives) > 0 {
		b.WriteString(" How about one of these instead?")
		for _, alt := range verdict.Alternatives {
			b.WriteString("\n  - ")
			b.WriteString(timeparse.FormatLong(alt))
		}
	}
	b.WriteString("\nWhat other time works for you?")
	return b.String()
}

func confirmationSummary(draft *store.BookingDraft, staff string) string {
	var b strings.Builder
	b.WriteString("Here's what I have:\n")
	fmt.Fprintf(&b, "  Owner: %s\n", draft.OwnerName)
	fmt.Fprintf(&b, "  Pet: %s\n", draft.PetName)
	fmt.Fprintf(&b, "  Phone: %s\n", draft.Phone)
	fmt.Fprintf(&b, "  When: %s\n", timeparse.FormatLong(draft.ScheduledAt))
	if staff != "" {
		fmt.Fprintf(&b, "  With: %s\n", staff)
	}
	b.WriteString("Shall I confirm this appointment? (yes/no)")
	return b.String()
}
