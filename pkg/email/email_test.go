package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{SendTo: "user@example.com", Subject: "Hi", BodyHTML: "<p>x</p>"}

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		errMsg string
	}{
		{"valid", func(*email.SendEmailParams) {}, ""},
		{"missing recipient", func(p *email.SendEmailParams) { p.SendTo = " " }, "recipient is required"},
		{"malformed recipient", func(p *email.SendEmailParams) { p.SendTo = "nope" }, "valid email"},
		{"missing subject", func(p *email.SendEmailParams) { p.Subject = "" }, "subject is required"},
		{"missing body", func(p *email.SendEmailParams) { p.BodyHTML = "" }, "body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	t.Run("writes body and metadata", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "out")
		sender := email.NewDevSender(dir)

		err := sender.SendEmail(context.Background(), email.SendEmailParams{
			SendTo: "user@example.com", Subject: "Confirm", BodyHTML: "<p>hi</p>", Tag: "verification",
		})
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)

		for _, f := range files {
			assert.Contains(t, f.Name(), "verification")
			data, err := os.ReadFile(filepath.Join(dir, f.Name()))
			require.NoError(t, err)
			if strings.HasSuffix(f.Name(), ".json") {
				var meta map[string]any
				require.NoError(t, json.Unmarshal(data, &meta))
				assert.Equal(t, "user@example.com", meta["send_to"])
				assert.Equal(t, "Confirm", meta["subject"])
			} else {
				assert.Equal(t, "<p>hi</p>", string(data))
			}
		}
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		err := email.NewDevSender(dir).SendEmail(context.Background(), email.SendEmailParams{SendTo: "user@example.com"})
		assert.ErrorIs(t, err, email.ErrInvalidParams)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	base := email.Config{SenderEmail: "no-reply@example.com", SupportEmail: "support@example.com", DevOutputDir: t.TempDir()}

	t.Run("dev sender without token", func(t *testing.T) {
		t.Parallel()
		s, err := email.NewSender(base)
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, s)
	})

	t.Run("postmark with token", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.PostmarkServerToken = "server-token"
		s, err := email.NewSender(cfg)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("postmark rejects bad sender", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.PostmarkServerToken = "server-token"
		cfg.SenderEmail = "bad"
		_, err := email.NewSender(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}
