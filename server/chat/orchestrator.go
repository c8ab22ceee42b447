// Package chat implements the conversation pipeline: intent routing, the
// booking state machine, and cached open Q&A.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/plugin/llm"
	"github.com/pawdesk/pawdesk/plugin/timeparse"
	"github.com/pawdesk/pawdesk/server/internal/observability"
	"github.com/pawdesk/pawdesk/server/scheduling"
	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/cache"
)

const (
	// historyTurns is how many prior turns are passed to the generator.
	historyTurns = 10

	msgApology         = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."
	msgConfirmReprompt = "Please reply \"yes\" to confirm or \"no\" to cancel the booking."
	msgDeclined        = "Okay, I won't book it. Let me know if you'd like to try a different time."
	msgHoldExpired     = "It looks like that time slot is no longer held for you. When would you like to come in instead?"
	msgSaveFailed      = "Something went wrong while saving your appointment. Please try confirming again."
	msgBooked          = "You're all set! Your appointment for %s is booked for %s. See you then!"
)

// ErrEmptyMessage rejects blank inbound messages.
var ErrEmptyMessage = errors.New("message must not be empty")

// SessionStore is the persistence surface the orchestrator needs. *store.Store
// satisfies it.
type SessionStore interface {
	FindSession(ctx context.Context, id string) (*store.ConversationSession, error)
	SaveSession(ctx context.Context, session *store.ConversationSession) error
	CreateAppointment(ctx context.Context, appointment *store.Appointment) error
}

// Request is one inbound chat message.
type Request struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// Response is the reply returned to the client.
type Response struct {
	SessionID    string             `json:"session_id"`
	Message      string             `json:"message"`
	BookingState store.BookingState `json:"booking_state"`
}

// Orchestrator routes each inbound message through cancellation handling, the
// booking flow, intent detection, and finally cached Q&A. Requests for the
// same session are serialized so concurrent turns cannot tear the draft.
type Orchestrator struct {
	sessions  SessionStore
	flow      *BookingFlow
	slots     *scheduling.Manager
	responses *cache.ResponseCache
	generator llm.Generator
	logger    *slog.Logger
	now       func() time.Time

	// OnBooked, when set, is invoked once per successfully created
	// appointment.
	OnBooked func()

	mu           sync.Mutex
	sessionLocks map[string]*sessionLock
}

// sessionLock is a refcounted per-session mutex. The refcount lets lockSession
// drop the map entry as soon as the last holder releases it, so the map stays
// proportional to in-flight requests rather than total sessions seen.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewOrchestrator wires the conversation pipeline.
func NewOrchestrator(
	sessions SessionStore,
	slots *scheduling.Manager,
	times timeparse.TimeService,
	responses *cache.ResponseCache,
	generator llm.Generator,
) *Orchestrator {
	return &Orchestrator{
		sessions:     sessions,
		flow:         NewBookingFlow(slots, times),
		slots:        slots,
		responses:    responses,
		generator:    generator,
		logger:       slog.Default(),
		now:          time.Now,
		sessionLocks: make(map[string]*sessionLock),
	}
}

// Handle processes one inbound message end to end and persists the updated
// session. A persistence failure is returned to the caller; the in-memory
// state mutation is not rolled back.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	session, err := o.sessions.FindSession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if session == nil {
		session = &store.ConversationSession{ID: sessionID, BookingState: store.StateNone}
	}

	now := o.now()
	session.Append(store.RoleUser, message, now)

	reply := o.reply(ctx, session, message, now)

	session.Append(store.RoleBot, reply, now)
	if err := o.sessions.SaveSession(ctx, session); err != nil {
		return nil, errors.Wrap(err, "save session")
	}

	return &Response{
		SessionID:    session.ID,
		Message:      reply,
		BookingState: session.BookingState,
	}, nil
}

func (o *Orchestrator) reply(ctx context.Context, session *store.ConversationSession, message string, now time.Time) string {
	switch {
	case session.BookingState == store.StateAwaitingConfirmation:
		return o.handleConfirmation(ctx, session, message)

	case session.BookingState != store.StateNone && isCancelIntent(message):
		return o.flow.Abort(session)

	case session.BookingState != store.StateNone:
		return o.flow.ProcessResponse(ctx, session, message, now)

	case isBookingIntent(message):
		return o.flow.Start(session)

	default:
		return o.answerQuestion(ctx, session, message)
	}
}

// handleConfirmation is the final yes/no step. On yes the slot hold becomes a
// permanent booking and an appointment record is written; the booking state is
// reset before the write, so a failed write leaves the flow cleanly ended.
func (o *Orchestrator) handleConfirmation(ctx context.Context, session *store.ConversationSession, message string) string {
	logger := o.requestLogger(ctx)
	switch {
	case isConfirm(message):
		draft := session.Draft
		if err := o.slots.ConfirmReservation(draft.SlotKey, session.ID); err != nil {
			logger.Warn("confirmation on dead reservation",
				"session_id", session.ID, "slot_key", draft.SlotKey, "error", err)
			session.Draft.SlotKey = ""
			session.Draft.ScheduledAt = time.Time{}
			session.BookingState = store.StateAwaitingDateTime
			return msgHoldExpired
		}

		session.ResetBooking()

		appointment := &store.Appointment{
			SessionID:         session.ID,
			OwnerName:         draft.OwnerName,
			PetName:           draft.PetName,
			Phone:             draft.Phone,
			PreferredDateTime: draft.PreferredDateTime,
			ScheduledAt:       draft.ScheduledAt,
			SlotKey:           draft.SlotKey,
			Status:            store.AppointmentPending,
		}
		if err := o.sessions.CreateAppointment(ctx, appointment); err != nil {
			logger.Error("appointment create failed",
				"session_id", session.ID, "slot_key", draft.SlotKey, "error", err)
			return msgSaveFailed
		}
		if o.OnBooked != nil {
			o.OnBooked()
		}

		logger.Info("appointment booked",
			"session_id", session.ID, "appointment_id", appointment.ID, "slot_key", draft.SlotKey)
		return bookedMessage(&draft)

	case isDeny(message):
		return o.flow.Abort(session)

	default:
		return msgConfirmReprompt
	}
}

func bookedMessage(draft *store.BookingDraft) string {
	return fmt.Sprintf(msgBooked, draft.PetName, timeparse.FormatLong(draft.ScheduledAt))
}

// answerQuestion serves open Q&A: similarity pre-filter first, then the
// response cache backed by the generator. Generator failures degrade to a
// fixed apology, never a raw error.
func (o *Orchestrator) answerQuestion(ctx context.Context, session *store.ConversationSession, message string) string {
	if answer, ok := o.responses.FindSimilar(message); ok {
		return string(answer)
	}

	logger := o.requestLogger(ctx)
	history := o.generatorHistory(session)
	answer, err := o.responses.GetOrCompute(ctx, message, 0, func(ctx context.Context) ([]byte, error) {
		reply, err := o.generator.Generate(ctx, message, history)
		if err != nil {
			return nil, err
		}
		logger.Debug("generated answer", "session_id", session.ID, "duration", reply.Duration)
		return []byte(reply.Text), nil
	})
	if err != nil {
		logger.Warn("generation failed", "session_id", session.ID, "error", err)
		return msgApology
	}
	return string(answer)
}

// requestLogger returns a logger tagged with the transport's request fields
// when the context carries them, falling back to the orchestrator's own.
func (o *Orchestrator) requestLogger(ctx context.Context) *slog.Logger {
	reqCtx, ok := observability.FromContext(ctx)
	if !ok {
		return o.logger
	}
	return reqCtx.Logger.With(
		observability.LogFieldRequestID, reqCtx.RequestID,
		observability.LogFieldRoute, reqCtx.Route,
	)
}

// generatorHistory returns the turns before the current message, newest last.
func (o *Orchestrator) generatorHistory(session *store.ConversationSession) []llm.Message {
	msgs := session.RecentMessages(historyTurns + 1)
	if len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return history
}

func (o *Orchestrator) lockSession(id string) func() {
	o.mu.Lock()
	lock, ok := o.sessionLocks[id]
	if !ok {
		lock = &sessionLock{}
		o.sessionLocks[id] = lock
	}
	lock.refs++
	o.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		o.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(o.sessionLocks, id)
		}
		o.mu.Unlock()
	}
}
