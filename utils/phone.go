// utils/phone.go
package utils

import (
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// NormalizePhone converts a local number such as "0412 345 678" into
// "+61412345678" for callingCode "61". Numbers already carrying a "+" and any
// other input are returned unchanged.
func NormalizePhone(raw, callingCode string) string {
	if raw == "" {
		return raw
	}
	digits := digitsOnly(raw)
	if len(digits) == 10 && digits[0] == '0' {
		return "+" + callingCode + digits[1:]
	}
	return raw
}

// NormalizeRegistrationPhone is the stricter form used when a tradie signs
// up: separators are removed and a calling code is always applied.
func NormalizeRegistrationPhone(raw, callingCode string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "0"):
		return "+" + callingCode + cleaned[1:]
	default:
		return "+" + callingCode + cleaned
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone checks that phone is in E.164 form, "+" then 7 to 15 digits
func ValidatePhone(phone string) bool {
	return e164Pattern.MatchString(phone)
}
