package timeparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsable indicates the input did not match any supported expression.
var ErrUnparsable = errors.New("unparsable time expression")

// DefaultHour is the assumed appointment hour when a day is given without a
// clock time ("tomorrow", "next friday").
const DefaultHour = 10

// todayLeadTime is how far ahead a bare "today" resolves.
const todayLeadTime = 2 * time.Hour

var (
	clockPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	weekdayPattern = regexp.MustCompile(`(?i)\bnext\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parser parses natural-language date/time expressions.
type Parser struct {
	timezone *time.Location
}

// NewParser creates a parser resolving expressions in the given timezone.
func NewParser(timezone *time.Location) *Parser {
	if timezone == nil {
		timezone = time.Local
	}
	return &Parser{timezone: timezone}
}

// Parse resolves input relative to the reference instant.
func (p *Parser) Parse(input string, reference time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrUnparsable
	}

	ref := reference.In(p.timezone)
	lower := strings.ToLower(input)

	hour, minute, hasClock := p.parseClock(lower)

	// Relative day keywords first.
	switch {
	case strings.Contains(lower, "tomorrow"):
		day := ref.AddDate(0, 0, 1)
		return p.atTime(day, hour, minute, hasClock), nil

	case strings.Contains(lower, "today"):
		if hasClock {
			return p.atTime(ref, hour, minute, true), nil
		}
		// Bare "today" means as soon as practical.
		return ref.Add(todayLeadTime).Truncate(time.Minute), nil
	}

	if m := weekdayPattern.FindStringSubmatch(lower); m != nil {
		day := nextWeekday(ref, weekdays[strings.ToLower(m[1])])
		return p.atTime(day, hour, minute, hasClock), nil
	}

	// Explicit dates, optionally with a clock time in the same input.
	if t, ok := p.tryStandardFormats(input, ref); ok {
		if hasClock {
			return p.atTime(t, hour, minute, true), nil
		}
		return t, nil
	}

	// A bare clock time means today at that time.
	if hasClock {
		return p.atTime(ref, hour, minute, true), nil
	}

	return time.Time{}, ErrUnparsable
}

// FormatLong renders an instant the way it is echoed back to the user.
func FormatLong(t time.Time) string {
	return t.Format("Monday, January 2, 2006 at 3:04 PM")
}

// parseClock extracts a 12-hour clock suffix like "2pm" or "11:30 am".
func (p *Parser) parseClock(lower string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, 0, false
	}

	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, false
	}

	meridiem := strings.ToLower(m[3])
	if meridiem == "pm" && hour < 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}

	return hour, minute, true
}

// atTime pins day to the given clock time, or DefaultHour when none was given.
func (p *Parser) atTime(day time.Time, hour, minute int, hasClock bool) time.Time {
	if !hasClock {
		hour = DefaultHour
		minute = 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.timezone)
}

// tryStandardFormats attempts common explicit date formats.
func (p *Parser) tryStandardFormats(input string, ref time.Time) (time.Time, bool) {
	// Strip a trailing clock expression so date-only layouts can match.
	datePart := strings.TrimSpace(clockPattern.ReplaceAllString(input, ""))
	datePart = strings.TrimRight(datePart, " ,@")
	datePart = strings.TrimSuffix(datePart, " at")

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"January 2",
		"Jan 2",
	}

	for _, format := range formats {
		t, err := time.ParseInLocation(format, datePart, p.timezone)
		if err != nil {
			continue
		}
		// Year-less layouts parse into year 0; assume the reference year.
		if t.Year() == 0 {
			t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, p.timezone)
		}
		// Date-only layouts get the default slot hour.
		if t.Hour() == 0 && t.Minute() == 0 {
			t = time.Date(t.Year(), t.Month(), t.Day(), DefaultHour, 0, 0, 0, p.timezone)
		}
		return t, true
	}

	return time.Time{}, false
}

// nextWeekday returns the next occurrence of target strictly after ref's day.
func nextWeekday(ref time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(ref.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return ref.AddDate(0, 0, days)
}
