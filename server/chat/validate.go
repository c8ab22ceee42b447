package chat

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/pawdesk/pawdesk/plugin/timeparse"
)

// maxBookingLead is how far ahead an appointment may be requested.
const maxBookingLead = 6 * 30 * 24 * time.Hour

// validateOwnerName requires a trimmed length of at least two characters.
func validateOwnerName(input string) (string, string) {
	name := strings.TrimSpace(input)
	if len([]rune(name)) < 2 {
		return "", "That name looks too short. May I have your full name?"
	}
	return name, ""
}

// validatePetName accepts any non-empty trimmed text.
func validatePetName(input string) (string, string) {
	name := strings.TrimSpace(input)
	if name == "" {
		return "", "I didn't catch that. What's your pet's name?"
	}
	return name, ""
}

// validatePhone strips non-digits and requires exactly ten of them.
func validatePhone(input string) (string, string) {
	var digits strings.Builder
	for _, r := range input {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()
	if len(phone) != 10 {
		return "", "I need a 10-digit phone number. Could you try again?"
	}
	return phone, ""
}

// validateDateTime resolves free-text into an instant and rejects instants in
// the past or more than six months out. Each failure mode carries its own
// corrective message.
func validateDateTime(ctx context.Context, times timeparse.TimeService, input string, now time.Time) (time.Time, string) {
	resolved, err := times.Resolve(ctx, input, now)
	if err != nil {
		return time.Time{}, "Sorry, I couldn't understand that date. Try something like \"tomorrow at 2pm\" or \"next Friday\"."
	}
	if !resolved.After(now) {
		return time.Time{}, "That time has already passed. When would you like to come in?"
	}
	if resolved.After(now.Add(maxBookingLead)) {
		return time.Time{}, "We only book up to six months ahead. Could you pick an earlier date?"
	}
	return resolved, ""
}
