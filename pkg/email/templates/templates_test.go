package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/email/templates"
)

func TestVerification(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), templates.Verification(templates.ActionData{
		AppName:   "Acme",
		Name:      "Ann",
		Link:      "https://acme.test/verify-email?token=abc&x=1",
		ExpiresIn: "24 hours",
	}))
	require.NoError(t, err)
	assert.Contains(t, html, "Confirm your email address")
	assert.Contains(t, html, "Hello Ann,")
	assert.Contains(t, html, `href="https://acme.test/verify-email?token=abc&amp;x=1"`)
	assert.Contains(t, html, "24 hours")
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("escapes user supplied text", func(t *testing.T) {
		t.Parallel()
		html, err := templates.Render(context.Background(), templates.PasswordReset(templates.ActionData{
			AppName:   "Acme",
			Name:      "<script>alert(1)</script>",
			Link:      "https://acme.test/reset-password?token=t",
			ExpiresIn: "1 hour",
		}))
		require.NoError(t, err)
		assert.NotContains(t, html, "<script>")
		assert.Contains(t, html, "&lt;script&gt;")
		assert.Contains(t, html, "Reset password")
	})

	t.Run("rejects script links", func(t *testing.T) {
		t.Parallel()
		html, err := templates.Render(context.Background(), templates.PasswordReset(templates.ActionData{
			AppName: "Acme",
			Link:    "javascript:alert(1)",
		}))
		require.NoError(t, err)
		assert.NotContains(t, html, `href="javascript:`)
		assert.Contains(t, html, "Hello,")
	})
}
