package chat

import "strings"

// bookingPhrases is the fixed phrase table for booking-intent detection.
// First substring match wins; there is no scoring. Classification is kept
// deliberately rule-based so the booking flow never depends on the generator.
var bookingPhrases = []string{
	"book an appointment",
	"schedule an appointment",
	"schedule a visit",
	"make an appointment",
	"see a vet",
	"see the vet",
	"want to book",
	"need an appointment",
	"bring my",
}

// cancelWords aborts an in-progress booking from any collecting state.
var cancelWords = []string{"cancel", "stop", "nevermind", "forget it", "exit"}

var (
	confirmWords = map[string]bool{"yes": true, "confirm": true, "y": true}
	denyWords    = map[string]bool{"no": true, "cancel": true, "n": true}
)

// isBookingIntent reports whether the message starts a booking flow.
func isBookingIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range bookingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// isCancelIntent reports whether the message aborts the current flow.
func isCancelIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, word := range cancelWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// isConfirm and isDeny classify the final yes/no answer. Exact trimmed match
// only; anything else reprompts.
func isConfirm(message string) bool {
	return confirmWords[strings.ToLower(strings.TrimSpace(message))]
}

func isDeny(message string) bool {
	return denyWords[strings.ToLower(strings.TrimSpace(message))]
}
