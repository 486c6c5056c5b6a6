package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a@x.com", sanitizer.NormalizeEmail("  A@X.Com \n"))
	assert.Equal(t, "first.last@example.org", sanitizer.NormalizeEmail("First.Last@Example.ORG"))
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and collapses", "  Ann \t  Lee \n", "Ann Lee"},
		{"drops control chars", "Ann\x00\x07Lee", "AnnLee"},
		{"composes accents", "Jose\u0301", "Jos\u00e9"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizer.NormalizeName(tt.in))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a***@x.com", sanitizer.MaskEmail("ann@x.com"))
	assert.Equal(t, "***", sanitizer.MaskEmail("invalid"))
}
