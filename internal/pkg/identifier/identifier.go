// Package identifier normalizes the email addresses and phone numbers that
// verification records are keyed on. Send and verify paths must both go
// through these functions so that a code issued for an identifier can be
// found again.
package identifier

import (
	"errors"
	"regexp"
	"strings"
)

// CountryCode is the dialing prefix every stored phone number carries.
const CountryCode = "91"

var (
	// ErrInvalidEmail is returned for addresses that do not look like local@domain.tld.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidPhone is returned for numbers that are not Indian mobile numbers.
	ErrInvalidPhone = errors.New("invalid phone number")

	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+91|91)?([6-9]\d{9})$`)
)

// NormalizeEmail trims and lower-cases an address after checking its shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if !emailRe.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

// NormalizePhone returns the canonical "91XXXXXXXXXX" form of an Indian mobile number.
// Whitespace and dashes are ignored; a single +91 or 91 prefix is accepted.
func NormalizePhone(raw string) (string, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			return -1
		}
		return r
	}, raw)
	m := phoneRe.FindStringSubmatch(compact)
	if m == nil {
		return "", ErrInvalidPhone
	}
	return CountryCode + m[2], nil
}

// E164 renders a canonical phone number with a leading plus sign.
func E164(canonical string) string {
	return "+" + canonical
}
