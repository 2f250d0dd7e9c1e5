// utils/intent.go
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var lowIntentReplies = map[string]struct{}{
	"ok": {}, "okay": {}, "thanks": {}, "thank you": {}, "cool": {},
	"👍": {}, "👌": {}, "great": {}, "no worries": {}, "cheers": {}, "got it": {},
	"sounds good": {}, "roger": {}, "yep": {}, "yup": {}, "aye": {}, "k": {}, "sure": {},
}

var (
	bookingPattern  = regexp.MustCompile(`(?i)(book(ing)?|schedule|job)`)
	quotePattern    = regexp.MustCompile(`(?i)(quote|quoting|how much|cost|price)`)
	callbackPattern = regexp.MustCompile(`(?i)(call\s?back|ring|talk|speak)`)
)

// Intent holds the independent pattern matches for one inbound message
type Intent struct {
	IsBooking  bool
	IsQuote    bool
	IsCallback bool
}

// IsBookingRequest is true when any of the patterns matched
func (i Intent) IsBookingRequest() bool {
	return i.IsBooking || i.IsQuote || i.IsCallback
}

// IsLowIntent reports whether text is an acknowledgement that needs no reply
func IsLowIntent(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(trimmed) < 3 {
		return true
	}
	_, ok := lowIntentReplies[trimmed]
	return ok
}

func Classify(text string) Intent {
	return Intent{
		IsBooking:  bookingPattern.MatchString(text),
		IsQuote:    quotePattern.MatchString(text),
		IsCallback: callbackPattern.MatchString(text),
	}
}

// LooksLikeName is true for short replies of at most three words
func LooksLikeName(text string) bool {
	trimmed := strings.TrimSpace(text)
	return utf8.RuneCountInString(trimmed) > 1 && len(strings.Fields(trimmed)) <= 3
}

// ContainsAnyKeyword matches keywords case-insensitively as substrings
func ContainsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
