package validator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all pass", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validator.Apply(
			validator.RequiredString("name", "Ann"),
			validator.ValidEmail("email", "ann@example.com"),
		))
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.RequiredString("name", "  "),
			validator.ValidEmail("email", "nope"),
			validator.MaxLenString("bio", "abc", 2),
		)
		require.Error(t, err)

		ve := validator.ExtractValidationErrors(err)
		require.Len(t, ve, 3)
		assert.True(t, ve.Has("email"))
		assert.Equal(t, []string{"must be a valid email address"}, ve.Fields()["email"])
		assert.Contains(t, err.Error(), "name: field is required")
	})

	t.Run("extract through wrapping", func(t *testing.T) {
		t.Parallel()
		inner := validator.Apply(validator.RequiredString("x", ""))
		wrapped := fmt.Errorf("signup: %w", errors.Join(errors.New("validation"), inner))
		assert.True(t, validator.IsValidationError(wrapped))
		assert.False(t, validator.IsValidationError(errors.New("other")))
	})
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		ok    bool
	}{
		{"a@x.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"plain", false},
		{"@x.com", false},
		{"a@localhost", false},
		{"a@x..com", false},
		{"Ann <a@x.com>", false},
		{" a@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()
			err := validator.Apply(validator.ValidEmail("email", tt.email))
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		failures int
	}{
		{"valid", "Abc12345", 0},
		{"too short", "Ab1", 1},
		{"no upper", "abc12345", 1},
		{"no lower", "ABC12345", 1},
		{"no digit", "Abcdefgh", 1},
		{"empty", "", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validator.Apply(validator.Password("password", tt.password)...)
			if tt.failures == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Len(t, validator.ExtractValidationErrors(err), tt.failures)
		})
	}
}

func TestValidUUID(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validator.Apply(validator.ValidUUID("id", "6ba7b810-9dad-11d1-80b4-00c04fd430c8")))
	assert.Error(t, validator.Apply(validator.ValidUUID("id", "00000000-0000-0000-0000-000000000000")))
	assert.Error(t, validator.Apply(validator.ValidUUID("id", "nope")))
}
