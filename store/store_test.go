package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/db/memory"
)

func newTestStore() *store.Store {
	return store.New(memory.NewDB())
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	defer s.Close()

	session := &store.ConversationSession{ID: "sess-1"}
	session.Append(store.RoleUser, "hello", time.Now())
	session.BookingState = store.StateAwaitingPetName
	session.Draft.OwnerName = "Alice"

	require.NoError(t, s.SaveSession(ctx, session))
	assert.NotZero(t, session.CreatedTs)
	assert.NotZero(t, session.UpdatedTs)

	found, err := s.FindSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, store.StateAwaitingPetName, found.BookingState)
	assert.Equal(t, "Alice", found.Draft.OwnerName)
	require.Len(t, found.Messages, 1)
	assert.Equal(t, "hello", found.Messages[0].Content)
}

func TestFindSessionMissing(t *testing.T) {
	s := newTestStore()
	defer s.Close()

	found, err := s.FindSession(context.Background(), "no-such")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSaveSessionPreservesCreatedTs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	defer s.Close()

	session := &store.ConversationSession{ID: "sess-2", CreatedTs: 1000}
	require.NoError(t, s.SaveSession(ctx, session))
	assert.Equal(t, int64(1000), session.CreatedTs)
	assert.Greater(t, session.UpdatedTs, int64(1000))
}

func TestFindSessionReturnsCopy(t *testing.T) {
	// Mutating a returned session must not leak into the cached copy until
	// the caller saves it back.
	ctx := context.Background()
	s := newTestStore()
	defer s.Close()

	session := &store.ConversationSession{ID: "sess-3"}
	require.NoError(t, s.SaveSession(ctx, session))

	first, err := s.FindSession(ctx, "sess-3")
	require.NoError(t, err)
	first.Draft.PetName = "Rex"

	second, err := s.FindSession(ctx, "sess-3")
	require.NoError(t, err)
	assert.Empty(t, second.Draft.PetName)
}

func TestCreateAppointmentAssignsID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	defer s.Close()

	a := &store.Appointment{
		SessionID: "sess-4",
		OwnerName: "Bob",
		PetName:   "Milo",
		Phone:     "5551234567",
		Status:    store.AppointmentPending,
	}
	require.NoError(t, s.CreateAppointment(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.NotZero(t, a.CreatedTs)

	list, err := s.FindAppointments(ctx, "sess-4")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestFindAppointmentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	defer s.Close()

	old := &store.Appointment{SessionID: "sess-5", PetName: "Old", CreatedTs: 100}
	recent := &store.Appointment{SessionID: "sess-5", PetName: "New", CreatedTs: 200}
	require.NoError(t, s.CreateAppointment(ctx, old))
	require.NoError(t, s.CreateAppointment(ctx, recent))

	list, err := s.FindAppointments(ctx, "sess-5")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New", list[0].PetName)
	assert.Equal(t, "Old", list[1].PetName)
}

func TestCleanupSessions(t *testing.T) {
	ctx := context.Background()
	driver := memory.NewDB()
	s := store.New(driver)
	defer s.Close()

	stale := &store.ConversationSession{
		ID:        "stale",
		CreatedTs: time.Now().Add(-48 * time.Hour).Unix(),
		UpdatedTs: time.Now().Add(-48 * time.Hour).Unix(),
	}
	require.NoError(t, driver.UpsertSession(ctx, stale))

	fresh := &store.ConversationSession{ID: "fresh"}
	require.NoError(t, s.SaveSession(ctx, fresh))

	removed, err := s.CleanupSessions(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	found, err := driver.FindSession(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, found)
}
