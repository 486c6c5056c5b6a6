package mailer

import (
	"fmt"
	"net/url"
	"time"
)

// Config controls links and copy in outgoing emails.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"authsvc"`
	BaseURL     string `env:"APP_BASE_URL,required"`
	Queue       string `env:"MAIL_QUEUE" envDefault:"mail"`
	MaxAttempts int    `env:"MAIL_MAX_ATTEMPTS" envDefault:"5"`

	// Validity windows quoted in the copy. Set from the auth configuration.
	VerificationTTL time.Duration `env:"-"`
	ResetTTL        time.Duration `env:"-"`
}

func (c Config) link(path, token string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("mailer: parse base url: %w", err)
	}
	u = u.JoinPath(path)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a limited time"
	case d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
