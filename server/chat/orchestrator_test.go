package chat

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawdesk/pawdesk/plugin/llm"
	"github.com/pawdesk/pawdesk/plugin/timeparse"
	"github.com/pawdesk/pawdesk/server/internal/observability"
	"github.com/pawdesk/pawdesk/server/scheduling"
	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/cache"
	"github.com/pawdesk/pawdesk/store/db/memory"
)

// Tuesday morning, inside working hours.
var testNow = time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	orch      *Orchestrator
	store     *store.Store
	slots     *scheduling.Manager
	generator *llm.MockGenerator
	responses *cache.ResponseCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.New(memory.NewDB())
	slots := scheduling.NewManager(scheduling.Config{Now: func() time.Time { return testNow }})
	responses := cache.NewResponseCache(cache.Config{
		SweepInterval:    -1,
		SnapshotInterval: -1,
	}, nil)
	generator := llm.NewMockGenerator("generated answer")

	orch := NewOrchestrator(st, slots, timeparse.NewService("UTC"), responses, generator)
	orch.now = func() time.Time { return testNow }

	t.Cleanup(func() {
		responses.Close()
		st.Close()
	})
	return &testEnv{orch: orch, store: st, slots: slots, generator: generator, responses: responses}
}

func (e *testEnv) send(t *testing.T, sessionID, message string) *Response {
	t.Helper()
	resp, err := e.orch.Handle(context.Background(), Request{SessionID: sessionID, Message: message})
	require.NoError(t, err)
	return resp
}

func TestBookingIntentStartsFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "I want to book an appointment")

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, store.StateAwaitingOwnerName, resp.BookingState)
	assert.Contains(t, resp.Message, "full name")
}

func TestHappyPathBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var booked int
	env.orch.OnBooked = func() { booked++ }

	resp := env.send(t, "", "I want to book an appointment")
	sid := resp.SessionID

	resp = env.send(t, sid, "Jane Doe")
	assert.Equal(t, store.StateAwaitingPetName, resp.BookingState)
	assert.Contains(t, resp.Message, "pet's name")

	resp = env.send(t, sid, "Rex")
	assert.Equal(t, store.StateAwaitingPhone, resp.BookingState)

	resp = env.send(t, sid, "555-123-4567")
	assert.Equal(t, store.StateAwaitingDateTime, resp.BookingState)

	resp = env.send(t, sid, "tomorrow at 2pm")
	assert.Equal(t, store.StateAwaitingConfirmation, resp.BookingState)
	assert.Contains(t, resp.Message, "Jane Doe")
	assert.Contains(t, resp.Message, "Rex")
	assert.Contains(t, resp.Message, "5551234567")

	resp = env.send(t, sid, "yes")
	assert.Equal(t, store.StateNone, resp.BookingState)
	assert.Contains(t, resp.Message, "Rex")

	appointments, err := env.store.FindAppointments(ctx, sid)
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	a := appointments[0]
	assert.Equal(t, store.AppointmentPending, a.Status)
	assert.Equal(t, "Jane Doe", a.OwnerName)
	assert.Equal(t, "5551234567", a.Phone)
	assert.Equal(t, time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC), a.ScheduledAt)

	// The slot is now permanently booked.
	assert.True(t, env.slots.IsSlotBooked(a.SlotKey))
	assert.Equal(t, 1, booked)
}

func TestCancelMidFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.send(t, "", "schedule a visit")
	sid := resp.SessionID
	env.send(t, sid, "Jane Doe")
	env.send(t, sid, "Rex")
	env.send(t, sid, "5551234567")
	resp = env.send(t, sid, "tomorrow at 2pm")
	require.Equal(t, store.StateAwaitingConfirmation, resp.BookingState)

	session, err := env.store.FindSession(ctx, sid)
	require.NoError(t, err)
	heldKey := session.Draft.SlotKey
	require.NotEmpty(t, heldKey)

	resp = env.send(t, sid, "no")
	assert.Equal(t, store.StateNone, resp.BookingState)

	session, err = env.store.FindSession(ctx, sid)
	require.NoError(t, err)
	assert.True(t, session.Draft.Empty())
	assert.False(t, env.slots.IsSlotBooked(heldKey), "hold released without waiting for expiry")
}

func TestCancelWordMidCollection(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "book an appointment please")
	sid := resp.SessionID
	env.send(t, sid, "Jane Doe")

	resp = env.send(t, sid, "nevermind")
	assert.Equal(t, store.StateNone, resp.BookingState)
	assert.Contains(t, strings.ToLower(resp.Message), "cancel")
}

func TestSundayRequestDoesNotAdvance(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "book an appointment")
	sid := resp.SessionID
	env.send(t, sid, "Jane Doe")
	env.send(t, sid, "Rex")
	env.send(t, sid, "5551234567")

	resp = env.send(t, sid, "next sunday")
	assert.Equal(t, store.StateAwaitingDateTime, resp.BookingState)
	assert.Contains(t, resp.Message, "closed")
	assert.Contains(t, resp.Message, "Monday", "suggests the next open day")
}

func TestValidationReprompts(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "book an appointment")
	sid := resp.SessionID

	resp = env.send(t, sid, "J")
	assert.Equal(t, store.StateAwaitingOwnerName, resp.BookingState)

	env.send(t, sid, "Jane Doe")
	env.send(t, sid, "Rex")

	resp = env.send(t, sid, "12345")
	assert.Equal(t, store.StateAwaitingPhone, resp.BookingState)
	assert.Contains(t, resp.Message, "10-digit")

	env.send(t, sid, "(555) 123-4567")
	resp = env.send(t, sid, "yesterday")
	assert.Equal(t, store.StateAwaitingDateTime, resp.BookingState)
}

func TestConfirmationReprompt(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "book an appointment")
	sid := resp.SessionID
	env.send(t, sid, "Jane Doe")
	env.send(t, sid, "Rex")
	env.send(t, sid, "5551234567")
	env.send(t, sid, "tomorrow at 2pm")

	resp = env.send(t, sid, "maybe later")
	assert.Equal(t, store.StateAwaitingConfirmation, resp.BookingState)
	assert.Contains(t, resp.Message, "yes")
}

func TestExpiredHoldOnConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.send(t, "", "book an appointment")
	sid := resp.SessionID
	env.send(t, sid, "Jane Doe")
	env.send(t, sid, "Rex")
	env.send(t, sid, "5551234567")
	env.send(t, sid, "tomorrow at 2pm")

	// Another session steals the bucket after the hold is forcibly dropped.
	session, err := env.store.FindSession(ctx, sid)
	require.NoError(t, err)
	env.slots.ReleaseReservation(session.Draft.SlotKey, sid)

	resp = env.send(t, sid, "yes")
	assert.Equal(t, store.StateAwaitingDateTime, resp.BookingState)
	assert.Contains(t, resp.Message, "no longer held")

	appointments, err := env.store.FindAppointments(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, appointments, "no appointment record on a dead reservation")
}

func TestPlainQuestionUsesGenerator(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "do parrots dream")
	assert.Equal(t, store.StateNone, resp.BookingState)
	assert.Equal(t, "generated answer", resp.Message)
	assert.Equal(t, 1, env.generator.Calls())

	// Second ask is served from cache.
	env.send(t, "", "do parrots dream")
	assert.Equal(t, 1, env.generator.Calls())
}

func TestGeneratorFailureApology(t *testing.T) {
	env := newTestEnv(t)
	env.generator.Err = errors.New("upstream down")

	resp := env.send(t, "", "do parrots dream")
	assert.Equal(t, msgApology, resp.Message)
}

func TestRequestScopedLoggerUsed(t *testing.T) {
	env := newTestEnv(t)
	env.generator.Err = errors.New("upstream down")

	var buf bytes.Buffer
	reqCtx := observability.NewRequestContext(
		slog.New(slog.NewTextHandler(&buf, nil)), "/api/v1/chat", "")
	ctx := observability.WithRequestContext(context.Background(), reqCtx)

	resp, err := env.orch.Handle(ctx, Request{Message: "do parrots dream"})
	require.NoError(t, err)
	assert.Equal(t, msgApology, resp.Message)
	assert.Contains(t, buf.String(), reqCtx.RequestID)
}

func TestCannedAnswerSkipsGenerator(t *testing.T) {
	env := newTestEnv(t)

	resp := env.send(t, "", "what is your vaccination schedule?")
	assert.NotEqual(t, "generated answer", resp.Message)
	assert.Zero(t, env.generator.Calls())
}

func TestGeneratorHistoryWindow(t *testing.T) {
	env := newTestEnv(t)

	sid := env.send(t, "", "first question").SessionID
	for i := 0; i < 8; i++ {
		env.send(t, sid, "another question entirely "+strings.Repeat("x", i+1))
	}

	assert.LessOrEqual(t, len(env.generator.LastHistory), historyTurns)
	last := env.generator.LastHistory[len(env.generator.LastHistory)-1]
	assert.Equal(t, string(store.RoleBot), last.Role)
}

func TestEmptyMessageRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orch.Handle(context.Background(), Request{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSessionLocksReleasedAfterTurn(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.send(t, "", "what are your hours of operation")
	}

	env.orch.mu.Lock()
	defer env.orch.mu.Unlock()
	assert.Empty(t, env.orch.sessionLocks, "lock map must not retain idle sessions")
}

func TestSessionLockSerializesConcurrentTurns(t *testing.T) {
	env := newTestEnv(t)
	sid := env.send(t, "", "book an appointment").SessionID

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orch.Handle(context.Background(),
				Request{SessionID: sid, Message: "Jane Doe"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	env.orch.mu.Lock()
	defer env.orch.mu.Unlock()
	assert.Empty(t, env.orch.sessionLocks)
}
