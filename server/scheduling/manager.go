package scheduling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// SlotDuration is the length of one appointment bucket.
	SlotDuration = 30 * time.Minute
	// HoldDuration is how long an unconfirmed reservation stays live.
	HoldDuration = 5 * time.Minute
	// BufferDuration is the mandatory idle time around a booked slot.
	BufferDuration = 10 * time.Minute
	// MaxBookingsPerDay caps how many live bookings one calendar day accepts.
	MaxBookingsPerDay = 20
	// BookingRetention is how long past bookings are kept before the sweep
	// drops them.
	BookingRetention = 24 * time.Hour

	defaultSweepInterval = time.Minute
)

// ErrInvalidReservation is returned when a confirmation targets a slot key
// with no live reservation, or one owned by a different session.
var ErrInvalidReservation = errors.New("reservation expired or not owned by session")

// slotState is the lifecycle of a slot table entry.
type slotState int

const (
	slotReserved slotState = iota
	slotConfirmed
)

type slot struct {
	key       string
	start     time.Time
	sessionID string
	state     slotState
	expiresAt time.Time // zero once confirmed
}

// live reports whether the entry still occupies its bucket at now. Expiry is
// validated lazily so a missed timer cannot leave a bucket stuck.
func (s *slot) live(now time.Time) bool {
	if s.state == slotConfirmed {
		return true
	}
	return now.Before(s.expiresAt)
}

// Availability is the verdict for one requested instant.
type Availability struct {
	Available bool
	// Reason is set when unavailable: "outside-hours", "slot-taken",
	// "buffer-conflict" or "day-full".
	Reason string
	// Staff is the assigned veterinarian when available.
	Staff string
	// Alternatives are up to three bookable instants, nearest first.
	Alternatives []time.Time
}

// Manager owns the slot table. Constructed once at startup and shared by all
// sessions; every table access goes through mu.
type Manager struct {
	mu       sync.Mutex
	slots    map[string]*slot
	calendar *BusinessCalendar
	roster   []string

	now func() time.Time

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// Config holds slot manager construction options.
type Config struct {
	Calendar *BusinessCalendar
	Roster   []string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultRoster is the clinic staff rotation used when none is configured.
func DefaultRoster() []string {
	return []string{"Dr. Martinez", "Dr. Chen", "Dr. Okafor"}
}

// NewManager creates a slot manager. Zero-value config fields fall back to the
// default calendar and roster.
func NewManager(config Config) *Manager {
	if config.Calendar == nil {
		config.Calendar = DefaultCalendar()
	}
	if len(config.Roster) == 0 {
		config.Roster = DefaultRoster()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Manager{
		slots:    make(map[string]*slot),
		calendar: config.Calendar,
		roster:   config.Roster,
		now:      config.Now,
		stopCh:   make(chan struct{}),
		logger:   slog.Default(),
	}
}

// SlotKey returns the canonical key of the 30-minute bucket containing t.
// Keys are stable within a bucket and differ across bucket boundaries.
func SlotKey(t time.Time) string {
	return t.UTC().Truncate(SlotDuration).Format(time.RFC3339)
}

// CheckAvailability reports whether the instant is bookable. It has no side
// effects, so two consecutive calls with no intervening reservation return the
// same verdict.
func (m *Manager) CheckAvailability(t time.Time) Availability {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkLocked(t)
}

func (m *Manager) checkLocked(t time.Time) Availability {
	now := m.now()

	if !m.calendar.IsOpen(t, SlotDuration) {
		ref := t
		if ref.Before(now) {
			ref = now
		}
		return Availability{
			Available:    false,
			Reason:       "outside-hours",
			Alternatives: m.openAlternativesLocked(ref, now),
		}
	}

	if s, ok := m.slots[SlotKey(t)]; ok && s.live(now) {
		return Availability{
			Available:    false,
			Reason:       "slot-taken",
			Alternatives: m.alternativesLocked(t),
		}
	}

	for _, s := range m.slots {
		if !s.live(now) {
			continue
		}
		if inBufferWindow(t, s) {
			return Availability{
				Available:    false,
				Reason:       "buffer-conflict",
				Alternatives: m.alternativesLocked(t),
			}
		}
	}

	if m.dayCountLocked(t, now) >= MaxBookingsPerDay {
		return Availability{
			Available:    false,
			Reason:       "day-full",
			Alternatives: m.alternativesLocked(t),
		}
	}

	return Availability{Available: true, Staff: m.staffFor(t)}
}

// inBufferWindow reports whether the requested instant lands inside
// [start - buffer, start + duration + buffer] of the existing booking. The
// raw instant is compared, not its bucket, so a 9:55 request still conflicts
// with a 10:00 booking.
func inBufferWindow(t time.Time, s *slot) bool {
	instant := t.UTC()
	lo := s.start.Add(-BufferDuration)
	hi := s.start.Add(SlotDuration + BufferDuration)
	return !instant.Before(lo) && !instant.After(hi)
}

// staffFor assigns a veterinarian round-robin by day of month.
func (m *Manager) staffFor(t time.Time) string {
	return m.roster[t.Day()%len(m.roster)]
}

func (m *Manager) dayCountLocked(t time.Time, now time.Time) int {
	y, mo, d := t.UTC().Date()
	count := 0
	for _, s := range m.slots {
		if !s.live(now) {
			continue
		}
		sy, smo, sd := s.start.Date()
		if sy == y && smo == mo && sd == d {
			count++
		}
	}
	return count
}

// alternativeOffsets is the fixed probe order for suggested slots: same-day
// nudges first, then the same time on adjacent days.
var alternativeOffsets = []time.Duration{
	30 * time.Minute, -30 * time.Minute,
	60 * time.Minute, -60 * time.Minute,
	90 * time.Minute, -90 * time.Minute,
	120 * time.Minute, -120 * time.Minute,
	24 * time.Hour, -24 * time.Hour,
	48 * time.Hour, -48 * time.Hour,
}

func (m *Manager) alternativesLocked(t time.Time) []time.Time {
	now := m.now()
	var out []time.Time
	for _, off := range alternativeOffsets {
		candidate := t.Add(off)
		if candidate.Before(now) {
			continue
		}
		if m.bookableLocked(candidate, now) {
			out = append(out, candidate)
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}

// bookableLocked is checkLocked minus the alternative search, used while
// probing so suggestions cannot recurse.
func (m *Manager) bookableLocked(t time.Time, now time.Time) bool {
	if !m.calendar.IsOpen(t, SlotDuration) {
		return false
	}
	for _, s := range m.slots {
		if !s.live(now) {
			continue
		}
		if inBufferWindow(t, s) {
			return false
		}
	}
	return m.dayCountLocked(t, now) < MaxBookingsPerDay
}

// openAlternativesLocked probes forward in 30-minute increments from the
// reference, rolling through closed days, and collects up to three bookable
// slots. Used for outside-hours verdicts where offset nudges around the
// requested instant would land in the same closed window.
func (m *Manager) openAlternativesLocked(from time.Time, now time.Time) []time.Time {
	var out []time.Time
	limit := from.Add(8 * 24 * time.Hour)
	probe := from
	for len(out) < 3 {
		probe = m.calendar.NextOpen(probe, SlotDuration)
		if probe.IsZero() || probe.After(limit) {
			break
		}
		if m.bookableLocked(probe, now) {
			out = append(out, probe)
		}
	}
	return out
}

// ReserveSlot places a 5-minute hold on the bucket containing t for the given
// session. Availability is rechecked under the lock, so of two racing sessions
// only one can hold the bucket.
func (m *Manager) ReserveSlot(t time.Time, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	verdict := m.checkLocked(t)
	if !verdict.Available {
		return "", errors.Errorf("slot not available: %s", verdict.Reason)
	}

	key := SlotKey(t)
	now := m.now()
	m.slots[key] = &slot{
		key:       key,
		start:     t.UTC().Truncate(SlotDuration),
		sessionID: sessionID,
		state:     slotReserved,
		expiresAt: now.Add(HoldDuration),
	}

	// Best-effort timed release. Expiry is also checked lazily on every read,
	// so a timer that never fires cannot wedge the bucket.
	time.AfterFunc(HoldDuration, func() {
		m.releaseExpired(key)
	})

	m.logger.Debug("slot reserved", "key", key, "session_id", sessionID)
	return key, nil
}

func (m *Manager) releaseExpired(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[key]; ok && s.state == slotReserved && !s.live(m.now()) {
		delete(m.slots, key)
	}
}

// ConfirmReservation converts the session's hold into a permanent booking.
// Returns ErrInvalidReservation when the hold is gone, expired, or owned by a
// different session. Re-confirming an already confirmed slot by its own
// session is a no-op.
func (m *Manager) ConfirmReservation(slotKey, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[slotKey]
	if !ok || s.sessionID != sessionID || !s.live(m.now()) {
		return ErrInvalidReservation
	}

	s.state = slotConfirmed
	s.expiresAt = time.Time{}
	m.logger.Info("slot confirmed", "key", slotKey, "session_id", sessionID)
	return nil
}

// ReleaseReservation drops the session's hold. It never touches confirmed
// bookings or holds owned by other sessions.
func (m *Manager) ReleaseReservation(slotKey, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.slots[slotKey]; ok && s.state == slotReserved && s.sessionID == sessionID {
		delete(m.slots, slotKey)
		m.logger.Debug("slot released", "key", slotKey, "session_id", sessionID)
	}
}

// IsSlotBooked reports whether the bucket holds a live entry.
func (m *Manager) IsSlotBooked(slotKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotKey]
	return ok && s.live(m.now())
}

// Start launches the periodic sweep that drops expired holds and bookings
// past the retention window.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx)
}

// Stop halts the sweep loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(defaultSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				m.logger.Debug("slot sweep", "removed", removed)
			}
		}
	}
}

// Sweep removes expired holds and bookings whose slot ended more than the
// retention window ago. Returns how many entries were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-BookingRetention)
	removed := 0
	for key, s := range m.slots {
		if !s.live(now) || s.start.Before(cutoff) {
			delete(m.slots, key)
			removed++
		}
	}
	return removed
}
