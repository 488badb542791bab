package phone

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when a phone number cannot be normalized.
var ErrInvalidPhone = errors.New("invalid phone number")

// Normalize converts a customer phone number to its canonical form: digits
// only, leading zero, no country prefix. All wallet rows are keyed by this
// canonical string, so every entry point must normalize before touching the
// store.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '+':
			// separators and the plus sign are dropped
		default:
			return "", ErrInvalidPhone
		}
	}

	s := b.String()
	// 84xxxxxxxxx -> 0xxxxxxxxx
	if strings.HasPrefix(s, "84") && len(s) >= 11 {
		s = "0" + s[2:]
	}

	if len(s) < 10 || len(s) > 11 || s[0] != '0' {
		return "", ErrInvalidPhone
	}
	return s, nil
}

// IsNormalized reports whether s is already in canonical form.
func IsNormalized(s string) bool {
	n, err := Normalize(s)
	return err == nil && n == s
}
