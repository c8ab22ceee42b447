// Package scheduling arbitrates clinic appointment slots. It owns the
// business-hours calendar and the in-memory slot table with temporary holds.
package scheduling

import "time"

// ClockTime is a wall-clock instant within a day, minutes since midnight.
type ClockTime int

// Clock builds a ClockTime from hour and minute.
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// Interval is a half-open [Start, End) range within a day.
type Interval struct {
	Start ClockTime
	End   ClockTime
}

func (i Interval) contains(t ClockTime) bool {
	return t >= i.Start && t < i.End
}

// DaySchedule is the operating window for a single weekday. A nil Open window
// (Open == Close == 0) means the clinic is closed that day.
type DaySchedule struct {
	Open   ClockTime
	Close  ClockTime
	Breaks []Interval
}

// Closed reports whether no hours are set for the day.
func (d DaySchedule) Closed() bool {
	return d.Open == d.Close
}

// BusinessCalendar maps weekdays to operating hours.
type BusinessCalendar struct {
	days [7]DaySchedule
}

// DefaultCalendar returns the standard clinic week: Monday through Friday
// 09:00 to 18:00 with a 13:00 to 14:00 lunch break, Saturday 09:00 to 14:00,
// Sunday closed.
func DefaultCalendar() *BusinessCalendar {
	cal := &BusinessCalendar{}
	weekday := DaySchedule{
		Open:   Clock(9, 0),
		Close:  Clock(18, 0),
		Breaks: []Interval{{Start: Clock(13, 0), End: Clock(14, 0)}},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		cal.days[d] = weekday
	}
	cal.days[time.Saturday] = DaySchedule{Open: Clock(9, 0), Close: Clock(14, 0)}
	return cal
}

// SetDay overrides the schedule for one weekday.
func (c *BusinessCalendar) SetDay(day time.Weekday, schedule DaySchedule) {
	c.days[day] = schedule
}

// IsOpen reports whether the clinic accepts appointments at t. The slot must
// start within opening hours, outside any break, and finish before closing.
func (c *BusinessCalendar) IsOpen(t time.Time, duration time.Duration) bool {
	day := c.days[t.Weekday()]
	if day.Closed() {
		return false
	}

	start := Clock(t.Hour(), t.Minute())
	end := start + ClockTime(duration.Minutes())
	if start < day.Open || end > day.Close {
		return false
	}
	for _, b := range day.Breaks {
		if b.contains(start) || (start < b.Start && end > b.Start) {
			return false
		}
	}
	return true
}

// NextOpen returns the earliest open instant strictly after t, probing forward
// in 30-minute steps and rolling to the next day's opening when past closing.
func (c *BusinessCalendar) NextOpen(t time.Time, duration time.Duration) time.Time {
	probe := t.Truncate(30 * time.Minute).Add(30 * time.Minute)
	// A week of closed days means a misconfigured calendar; cap the scan.
	limit := t.Add(8 * 24 * time.Hour)
	for probe.Before(limit) {
		if c.IsOpen(probe, duration) {
			return probe
		}
		day := c.days[probe.Weekday()]
		if day.Closed() || Clock(probe.Hour(), probe.Minute()) >= day.Close {
			probe = c.openingOf(probe.AddDate(0, 0, 1))
			continue
		}
		probe = probe.Add(30 * time.Minute)
	}
	return time.Time{}
}

// openingOf returns midnight-of-day adjusted to that day's opening time, or
// 09:00 when the day is closed so the forward scan keeps moving.
func (c *BusinessCalendar) openingOf(t time.Time) time.Time {
	day := c.days[t.Weekday()]
	open := day.Open
	if day.Closed() {
		open = Clock(9, 0)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), int(open)/60, int(open)%60, 0, 0, t.Location())
}
