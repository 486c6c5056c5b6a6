package sanitizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Both the local part and the domain are folded, so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName prepares a display name for storage: control characters are
// dropped, runs of whitespace collapse to one space, and the result is
// NFC-normalised so visually identical names compare equal.
func NormalizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	return norm.NFC.String(name)
}

// MaskEmail keeps the first character of the local part and the full domain,
// for log lines and support tooling.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	first := []rune(local)[0]
	return string(first) + "***@" + domain
}
