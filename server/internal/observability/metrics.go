package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates request counters for the chat server.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	bookingsMade  atomic.Int64

	routeMetrics map[string]*RouteMetrics

	durations    []time.Duration
	maxDurations int
}

// RouteMetrics are per-route counters.
type RouteMetrics struct {
	requestCount  atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a metrics collector keeping the last maxDurations
// request durations.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		routeMetrics: make(map[string]*RouteMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a handled request.
func (m *Metrics) RecordRequest(route string) {
	m.requestTotal.Add(1)
	m.getRouteMetrics(route).requestCount.Add(1)
}

// RecordFailure records a failed request.
func (m *Metrics) RecordFailure(route string) {
	m.requestFailed.Add(1)
	m.getRouteMetrics(route).errorCount.Add(1)
}

// RecordBooking records a completed appointment booking.
func (m *Metrics) RecordBooking() {
	m.bookingsMade.Add(1)
}

// RecordDuration records a request duration.
func (m *Metrics) RecordDuration(route string, duration time.Duration) {
	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()

	m.getRouteMetrics(route).totalDuration.Add(duration.Milliseconds())
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	RequestTotal  int64            `json:"request_total"`
	RequestFailed int64            `json:"request_failed"`
	BookingsMade  int64            `json:"bookings_made"`
	AvgDurationMs int64            `json:"avg_duration_ms"`
	Routes        map[string]Route `json:"routes"`
}

// Route is the per-route slice of a Snapshot.
type Route struct {
	Requests      int64 `json:"requests"`
	Errors        int64 `json:"errors"`
	TotalDuration int64 `json:"total_duration_ms"`
}

// Read returns the current counters.
func (m *Metrics) Read() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	var avg int64
	if len(m.durations) > 0 {
		avg = (total / time.Duration(len(m.durations))).Milliseconds()
	}

	routes := make(map[string]Route, len(m.routeMetrics))
	for name, rm := range m.routeMetrics {
		routes[name] = Route{
			Requests:      rm.requestCount.Load(),
			Errors:        rm.errorCount.Load(),
			TotalDuration: rm.totalDuration.Load(),
		}
	}

	return Snapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		BookingsMade:  m.bookingsMade.Load(),
		AvgDurationMs: avg,
		Routes:        routes,
	}
}

func (m *Metrics) getRouteMetrics(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routeMetrics[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routeMetrics[route] = rm
	}
	return rm
}
