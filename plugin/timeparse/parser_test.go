package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, March 12 2025, 09:30 UTC.
var ref = time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)

func newTestParser() *Parser {
	return NewParser(time.UTC)
}

func TestParse_RelativeDays(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "tomorrow defaults to 10am",
			input: "tomorrow",
			want:  time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "tomorrow with explicit time",
			input: "tomorrow at 2pm",
			want:  time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "tomorrow morning with minutes",
			input: "tomorrow at 9:15 am",
			want:  time.Date(2025, 3, 13, 9, 15, 0, 0, time.UTC),
		},
		{
			name:  "today with explicit time",
			input: "today at 5pm",
			want:  time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.input, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_BareToday(t *testing.T) {
	p := newTestParser()

	got, err := p.Parse("today", ref)
	require.NoError(t, err)
	// Two hours from the reference instant.
	assert.Equal(t, time.Date(2025, 3, 12, 11, 30, 0, 0, time.UTC), got)
}

func TestParse_NextWeekday(t *testing.T) {
	p := newTestParser()

	t.Run("upcoming weekday", func(t *testing.T) {
		got, err := p.Parse("next friday", ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), got)
	})

	t.Run("same weekday rolls a full week", func(t *testing.T) {
		got, err := p.Parse("next wednesday", ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 19, 10, 0, 0, 0, time.UTC), got)
	})

	t.Run("with explicit time", func(t *testing.T) {
		got, err := p.Parse("next monday at 3:30pm", ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 17, 15, 30, 0, 0, time.UTC), got)
	})
}

func TestParse_ExplicitDates(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "iso date defaults to 10am",
			input: "2025-04-01",
			want:  time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "us date",
			input: "04/01/2025",
			want:  time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "month name with time",
			input: "March 20 at 1pm",
			want:  time.Date(2025, 3, 20, 13, 0, 0, 0, time.UTC),
		},
		{
			name:  "bare clock means today",
			input: "3:30 pm",
			want:  time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.input, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_MeridiemEdges(t *testing.T) {
	p := newTestParser()

	got, err := p.Parse("tomorrow at 12pm", ref)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())

	got, err = p.Parse("tomorrow at 12am", ref)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())
}

func TestParse_Unparsable(t *testing.T) {
	p := newTestParser()

	for _, input := range []string{"", "banana", "whenever works", "25pm"} {
		_, err := p.Parse(input, ref)
		assert.ErrorIs(t, err, ErrUnparsable, "input %q", input)
	}
}

func TestFormatLong(t *testing.T) {
	got := FormatLong(time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC))
	assert.Equal(t, "Thursday, March 13, 2025 at 2:00 PM", got)
}
