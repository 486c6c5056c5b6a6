package cookie

import (
	"fmt"
	"net/http"
	"strings"
)

// Config holds cookie signing secrets and default attributes.
type Config struct {
	// Secrets sign cookie values. The first entry signs, all entries verify.
	Secrets  []string `env:"COOKIE_SECRETS,required" envSeparator:","`
	Domain   string   `env:"COOKIE_DOMAIN"`
	Secure   bool     `env:"COOKIE_SECURE" envDefault:"true"`
	SameSite string   `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

// NewFromConfig creates a Manager from cfg. Extra options override config values.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	sameSite, err := parseSameSite(cfg.SameSite)
	if err != nil {
		return nil, err
	}

	configOpts := []Option{WithSecure(cfg.Secure), WithSameSite(sameSite)}
	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}

	return New(cfg.Secrets, append(configOpts, opts...)...)
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: unknown SameSite mode %q", ErrInvalidConfig, s)
	}
}
