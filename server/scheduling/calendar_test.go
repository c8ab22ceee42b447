package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(weekday time.Weekday, hour, minute int) time.Time {
	// 2025-03-09 is a Sunday; offset into the following week.
	base := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(weekday)).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestIsOpen(t *testing.T) {
	cal := DefaultCalendar()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid-morning", day(time.Tuesday, 10, 0), true},
		{"weekday opening slot", day(time.Tuesday, 9, 0), true},
		{"weekday before opening", day(time.Tuesday, 8, 30), false},
		{"weekday last slot", day(time.Tuesday, 17, 30), true},
		{"weekday at closing", day(time.Tuesday, 18, 0), false},
		{"weekday lunch break", day(time.Tuesday, 13, 0), false},
		{"slot spilling into break", day(time.Tuesday, 12, 45), false},
		{"saturday morning", day(time.Saturday, 10, 0), true},
		{"saturday afternoon", day(time.Saturday, 14, 0), false},
		{"sunday", day(time.Sunday, 11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsOpen(tt.at, SlotDuration))
		})
	}
}

func TestNextOpenRollsPastClosing(t *testing.T) {
	cal := DefaultCalendar()

	next := cal.NextOpen(day(time.Tuesday, 19, 0), SlotDuration)
	assert.Equal(t, day(time.Wednesday, 9, 0), next)
}

func TestNextOpenSkipsSunday(t *testing.T) {
	cal := DefaultCalendar()

	next := cal.NextOpen(day(time.Saturday, 15, 0), SlotDuration)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
}

func TestNextOpenWithinDay(t *testing.T) {
	cal := DefaultCalendar()

	// During lunch the next slot is at the end of the break.
	next := cal.NextOpen(day(time.Tuesday, 13, 0), SlotDuration)
	assert.Equal(t, day(time.Tuesday, 14, 0), next)
}
