package validator

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RequiredString fails for empty or whitespace-only values.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

// MinLenString fails when value has fewer than min runes.
func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters long", min)},
	}
}

// MaxLenString fails when value has more than max runes. Runes are counted
// so multi-byte names are not penalized.
func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// ValidEmail accepts a bare RFC 5322 address whose domain has at least one dot.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if value == "" || strings.TrimSpace(value) != value {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value || addr.Name != "" {
				return false
			}
			local, domain, ok := strings.Cut(value, "@")
			if !ok || local == "" {
				return false
			}
			if !strings.Contains(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

// PasswordUppercase requires at least one upper-case letter.
func PasswordUppercase(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.IndexFunc(value, unicode.IsUpper) >= 0 },
		Error: ValidationError{Field: field, Message: "password must contain at least one uppercase letter"},
	}
}

// PasswordLowercase requires at least one lower-case letter.
func PasswordLowercase(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.IndexFunc(value, unicode.IsLower) >= 0 },
		Error: ValidationError{Field: field, Message: "password must contain at least one lowercase letter"},
	}
}

// PasswordDigit requires at least one decimal digit.
func PasswordDigit(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.IndexFunc(value, unicode.IsDigit) >= 0 },
		Error: ValidationError{Field: field, Message: "password must contain at least one digit"},
	}
}

// PasswordMinLength and PasswordMaxLength bound accepted passwords.
const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// Password returns the password policy: 8 to 128 characters with at least one
// uppercase letter, one lowercase letter and one digit.
func Password(field, value string) []Rule {
	return []Rule{
		MinLenString(field, value, PasswordMinLength),
		MaxLenString(field, value, PasswordMaxLength),
		PasswordUppercase(field, value),
		PasswordLowercase(field, value),
		PasswordDigit(field, value),
	}
}

// ValidUUID fails when value does not parse as a UUID.
func ValidUUID(field, value string) Rule {
	return Rule{
		Check: func() bool {
			id, err := uuid.Parse(value)
			return err == nil && id != uuid.Nil
		},
		Error: ValidationError{Field: field, Message: "must be a valid UUID"},
	}
}

// InListString fails when value is not one of allowed.
func InListString(field, value string, allowed []string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))},
	}
}
