package auth

import (
	"errors"
	"time"
)

// Config holds the settings the credential core depends on.
type Config struct {
	JWTSecret          string `env:"AUTH_JWT_SECRET,required"`
	HMACSecret         string `env:"AUTH_HMAC_SECRET,required"`
	OAuthEncryptionKey string `env:"AUTH_OAUTH_ENCRYPTION_KEY,required"`

	Issuer   string `env:"AUTH_JWT_ISSUER" envDefault:"authsvc"`
	Audience string `env:"AUTH_JWT_AUDIENCE" envDefault:"authsvc"`

	AccessTokenTTL     time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"720h"`
	EmailTokenTTLHours int           `env:"AUTH_EMAIL_TOKEN_TTL_HOURS" envDefault:"24"`
	ResetTokenTTL      time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`

	AllowUnverifiedLogin    bool   `env:"ALLOW_UNVERIFIED_LOGIN" envDefault:"false"`
	BootstrapSuperuserEmail string `env:"AUTH_BOOTSTRAP_SUPERUSER_EMAIL"`
}

// DefaultConfig returns the default lifetimes with no secrets set.
func DefaultConfig() Config {
	return Config{
		Issuer:             "authsvc",
		Audience:           "authsvc",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    30 * 24 * time.Hour,
		EmailTokenTTLHours: 24,
		ResetTokenTTL:      time.Hour,
	}
}

// EmailTokenTTL is the verification window.
func (c Config) EmailTokenTTL() time.Duration {
	return time.Duration(c.EmailTokenTTLHours) * time.Hour
}

// MinEncryptionKeyLength is the shortest accepted OAuth encryption key.
const MinEncryptionKeyLength = 32

var (
	ErrMissingSecret      = errors.New("auth config: jwt, hmac and oauth encryption secrets are required")
	ErrSharedSecret       = errors.New("auth config: hmac secret must differ from jwt secret")
	ErrShortEncryptionKey = errors.New("auth config: oauth encryption key must be at least 32 characters")
	ErrInvalidTTL         = errors.New("auth config: token lifetimes must be positive")
	ErrResetTTLTooLong    = errors.New("auth config: reset token lifetime must be shorter than the email token lifetime")
)

// Validate checks secrets and lifetimes.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" || c.HMACSecret == "" || c.OAuthEncryptionKey == "" {
		errs = append(errs, ErrMissingSecret)
	}
	if c.HMACSecret != "" && c.HMACSecret == c.JWTSecret {
		errs = append(errs, ErrSharedSecret)
	}
	if c.OAuthEncryptionKey != "" && len(c.OAuthEncryptionKey) < MinEncryptionKeyLength {
		errs = append(errs, ErrShortEncryptionKey)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.EmailTokenTTLHours <= 0 || c.ResetTokenTTL <= 0 {
		errs = append(errs, ErrInvalidTTL)
	} else if c.ResetTokenTTL >= c.EmailTokenTTL() {
		errs = append(errs, ErrResetTTLTooLong)
	}
	return errors.Join(errs...)
}
