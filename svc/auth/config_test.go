package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authsvc/svc/auth"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() auth.Config {
		cfg := auth.DefaultConfig()
		cfg.JWTSecret = "jwt"
		cfg.HMACSecret = "hmac"
		cfg.OAuthEncryptionKey = strings.Repeat("k", 32)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*auth.Config)
		wantErr error
	}{
		{"valid", func(*auth.Config) {}, nil},
		{"missing secret", func(c *auth.Config) { c.JWTSecret = "" }, auth.ErrMissingSecret},
		{"shared secret", func(c *auth.Config) { c.HMACSecret = c.JWTSecret }, auth.ErrSharedSecret},
		{"short key", func(c *auth.Config) { c.OAuthEncryptionKey = "short" }, auth.ErrShortEncryptionKey},
		{"zero ttl", func(c *auth.Config) { c.AccessTokenTTL = 0 }, auth.ErrInvalidTTL},
		{"reset window equals email window", func(c *auth.Config) { c.ResetTokenTTL = c.EmailTokenTTL() }, auth.ErrResetTTLTooLong},
		{"reset window longer", func(c *auth.Config) { c.ResetTokenTTL = 48 * time.Hour }, auth.ErrResetTTLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := auth.DefaultConfig()
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.EmailTokenTTL())
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.False(t, cfg.AllowUnverifiedLogin)
}
