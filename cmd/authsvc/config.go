package main

import (
	"errors"
	"time"

	"github.com/dmitrymomot/authsvc/modules/account"
	"github.com/dmitrymomot/authsvc/pkg/clientip"
	"github.com/dmitrymomot/authsvc/pkg/config"
	"github.com/dmitrymomot/authsvc/pkg/cookie"
	"github.com/dmitrymomot/authsvc/pkg/email"
	"github.com/dmitrymomot/authsvc/pkg/events"
	"github.com/dmitrymomot/authsvc/pkg/file"
	"github.com/dmitrymomot/authsvc/pkg/httpserver"
	"github.com/dmitrymomot/authsvc/pkg/oauth"
	"github.com/dmitrymomot/authsvc/pkg/pg"
	"github.com/dmitrymomot/authsvc/pkg/queue"
	"github.com/dmitrymomot/authsvc/pkg/ratelimiter"
	"github.com/dmitrymomot/authsvc/pkg/redis"
	"github.com/dmitrymomot/authsvc/svc/auth"
	"github.com/dmitrymomot/authsvc/svc/mailer"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	Name      string `env:"APP_NAME" envDefault:"authsvc"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	// Used and expired credential tokens are kept this long before the
	// hourly purge removes them.
	TokenRetention time.Duration `env:"TOKEN_PURGE_RETENTION" envDefault:"168h"`
	// Finished queue tasks are kept this long.
	TaskRetention time.Duration `env:"QUEUE_TASK_RETENTION" envDefault:"168h"`
	// Readiness probe budget per dependency.
	HealthTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"2s"`
}

type settings struct {
	App       appConfig
	Auth      auth.Config
	PG        pg.Config
	Redis     redis.Config
	HTTP      httpserver.Config
	Queue     queue.Config
	Email     email.Config
	Mailer    mailer.Config
	Events    events.Config
	Cookie    cookie.Config
	ClientIP  clientip.Config
	RateLimit ratelimiter.Config
	OAuth     oauth.Config
	Google    oauth.GoogleConfig
	GitHub    oauth.GitHubConfig
	Avatars   file.Config
	Account   account.Config
}

// loadSettings parses every component config from the environment and
// collects all failures rather than stopping at the first.
func loadSettings() (settings, error) {
	var s settings
	err := errors.Join(
		config.Load(&s.App),
		config.Load(&s.Auth),
		config.Load(&s.PG),
		config.Load(&s.Redis),
		config.Load(&s.HTTP),
		config.Load(&s.Queue),
		config.Load(&s.Email),
		config.Load(&s.Mailer),
		config.Load(&s.Events),
		config.Load(&s.Cookie),
		config.Load(&s.ClientIP),
		config.Load(&s.RateLimit),
		config.Load(&s.OAuth),
		config.Load(&s.Google),
		config.Load(&s.GitHub),
		config.Load(&s.Avatars),
		config.Load(&s.Account),
	)
	if err != nil {
		return s, err
	}

	s.Mailer.VerificationTTL = s.Auth.EmailTokenTTL()
	s.Mailer.ResetTTL = s.Auth.ResetTokenTTL
	return s, nil
}
