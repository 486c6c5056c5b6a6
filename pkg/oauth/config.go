package oauth

import "time"

// Config is the flow configuration shared by all providers.
type Config struct {
	StateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
}

// GoogleConfig configures the Google provider. It is disabled while
// ClientID is empty.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// Enabled reports whether Google sign-in is configured.
func (c GoogleConfig) Enabled() bool { return c.ClientID != "" }

// GitHubConfig configures the GitHub provider. It is disabled while
// ClientID is empty.
type GitHubConfig struct {
	ClientID     string   `env:"GITHUB_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GITHUB_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"GITHUB_OAUTH_REDIRECT_URL"`
	Scopes       []string `env:"GITHUB_OAUTH_SCOPES" envSeparator:"," envDefault:"read:user,user:email"`
}

// Enabled reports whether GitHub sign-in is configured.
func (c GitHubConfig) Enabled() bool { return c.ClientID != "" }
