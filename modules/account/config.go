package account

import "time"

// Config controls the cookies the module issues and request size caps.
type Config struct {
	RefreshCookieName string        `env:"REFRESH_COOKIE_NAME" envDefault:"refresh_token"`
	RefreshCookiePath string        `env:"REFRESH_COOKIE_PATH" envDefault:"/auth"`
	StateCookieName   string        `env:"OAUTH_STATE_COOKIE_NAME" envDefault:"oauth_state"`
	StateCookieTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	MaxBodyBytes      int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
	AvatarMaxBytes    int64         `env:"AVATAR_MAX_BYTES" envDefault:"2097152"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		RefreshCookieName: "refresh_token",
		RefreshCookiePath: "/auth",
		StateCookieName:   "oauth_state",
		StateCookieTTL:    10 * time.Minute,
		MaxBodyBytes:      1 << 20,
		AvatarMaxBytes:    2 << 20,
	}
}
