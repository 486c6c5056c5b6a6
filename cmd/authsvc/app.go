package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/authsvc/migrations"
	"github.com/dmitrymomot/authsvc/modules/account"
	"github.com/dmitrymomot/authsvc/pkg/clientip"
	"github.com/dmitrymomot/authsvc/pkg/cookie"
	"github.com/dmitrymomot/authsvc/pkg/email"
	"github.com/dmitrymomot/authsvc/pkg/events"
	"github.com/dmitrymomot/authsvc/pkg/file"
	"github.com/dmitrymomot/authsvc/pkg/httpserver"
	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/oauth"
	"github.com/dmitrymomot/authsvc/pkg/password"
	"github.com/dmitrymomot/authsvc/pkg/pg"
	"github.com/dmitrymomot/authsvc/pkg/queue"
	"github.com/dmitrymomot/authsvc/pkg/ratelimiter"
	"github.com/dmitrymomot/authsvc/pkg/redis"
	"github.com/dmitrymomot/authsvc/pkg/requestid"
	"github.com/dmitrymomot/authsvc/pkg/secrets"
	"github.com/dmitrymomot/authsvc/pkg/token"
	"github.com/dmitrymomot/authsvc/svc/auth"
	"github.com/dmitrymomot/authsvc/svc/auth/pgstore"
	"github.com/dmitrymomot/authsvc/svc/mailer"
)

const (
	purgeTokensTask = "auth.purge_expired_tokens"
	purgeTasksTask  = "queue.purge_finished_tasks"
)

func run(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	log := newLogger(cfg.App)
	log.InfoContext(ctx, "starting", slog.String("addr", cfg.HTTP.Addr))

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, migrations.FS, cfg.PG, log); err != nil {
		return err
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	} else {
		log.WarnContext(ctx, "REDIS_URL is empty; rate limits and OAuth state are kept in process memory")
	}

	publisher := events.New(cfg.Events, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.ErrorContext(ctx, "close event publisher", logger.Error(err))
		}
	}()

	tasks := queue.NewPostgresStorage(pool)
	svc, mailCipher, err := newAuthService(cfg, pool, tasks, publisher, log)
	if err != nil {
		return err
	}

	if addr := cfg.Auth.BootstrapSuperuserEmail; addr != "" {
		promoted, err := svc.BootstrapSuperuser(ctx, addr)
		if err != nil {
			return fmt.Errorf("bootstrap superuser: %w", err)
		}
		if promoted {
			log.InfoContext(ctx, "superuser bootstrapped", slog.String("email", addr))
		}
	}

	worker, scheduler, err := newBackground(cfg, svc, tasks, mailCipher, log)
	if err != nil {
		return err
	}

	router, err := newRouter(ctx, cfg, svc, pool, rdb, log)
	if err != nil {
		return err
	}

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx, router) })
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

func newLogger(app appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if app.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(app.LogLevel))
	}
	if app.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(strings.ToLower(app.LogFormat))))
	}
	return logger.New(opts...)
}

// newAuthService wires the credential core. The returned cipher protects
// tokens queued for mail delivery; it is bound to a different label than
// the one sealing OAuth provider tokens.
func newAuthService(cfg settings, pool *pgxpool.Pool, tasks *queue.PostgresStorage, publisher events.Publisher, log *slog.Logger) (*auth.Service, *secrets.Cipher, error) {
	codec, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, nil)
	if err != nil {
		return nil, nil, err
	}
	hasher, err := token.NewHasher(cfg.Auth.HMACSecret)
	if err != nil {
		return nil, nil, err
	}
	identityCipher, err := secrets.NewCipher(cfg.Auth.OAuthEncryptionKey, cfg.App.Env)
	if err != nil {
		return nil, nil, err
	}
	mailCipher, err := secrets.NewCipher(cfg.Auth.OAuthEncryptionKey, cfg.App.Env+":mail")
	if err != nil {
		return nil, nil, err
	}

	enqueuer, err := queue.NewEnqueuer(tasks, queue.WithDefaultMaxAttempts(cfg.Queue.MaxAttempts))
	if err != nil {
		return nil, nil, err
	}

	store := auth.NewRetryStore(pgstore.New(pool), auth.WithRetryLogger(log))
	svc := auth.NewService(store, codec, hasher, password.NewArgon2Hasher(), identityCipher,
		auth.WithConfig(cfg.Auth),
		auth.WithLogger(log),
		auth.WithMailer(mailer.NewDispatcher(enqueuer, mailCipher, cfg.Mailer)),
		auth.WithEvents(publisher),
	)
	return svc, mailCipher, nil
}

// newBackground builds the queue worker with the mail and maintenance
// handlers, and the scheduler that keeps the maintenance tasks pending.
func newBackground(cfg settings, svc *auth.Service, tasks *queue.PostgresStorage, mailCipher *secrets.Cipher, log *slog.Logger) (*queue.Worker, *queue.Scheduler, error) {
	sender, err := email.NewSender(cfg.Email)
	if err != nil {
		return nil, nil, err
	}

	worker, err := queue.NewWorker(tasks,
		queue.WithQueues(queue.DefaultQueueName, cfg.Mailer.Queue),
		queue.WithPollInterval(cfg.Queue.PollInterval),
		queue.WithLockTimeout(cfg.Queue.LockTimeout),
		queue.WithMaxConcurrentTasks(cfg.Queue.MaxConcurrentTasks),
		queue.WithRetryBackoff(cfg.Queue.RetryBaseDelay, time.Hour),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	handlers := mailer.Handlers(cfg.Mailer, mailCipher, sender, log)
	handlers = append(handlers,
		queue.NewPeriodicTaskHandler(purgeTokensTask, func(ctx context.Context) error {
			_, err := svc.PurgeExpiredTokens(ctx, cfg.App.TokenRetention)
			return err
		}),
		queue.NewPeriodicTaskHandler(purgeTasksTask, func(ctx context.Context) error {
			n, err := tasks.PurgeFinished(ctx, time.Now().Add(-cfg.App.TaskRetention))
			if err != nil {
				return err
			}
			log.InfoContext(ctx, "finished tasks purged", slog.Int64("count", n), logger.Component("queue"))
			return nil
		}),
	)
	if err := worker.Register(handlers...); err != nil {
		return nil, nil, err
	}

	scheduler, err := queue.NewScheduler(tasks,
		queue.WithCheckInterval(cfg.Queue.SchedulerInterval),
		queue.WithSchedulerLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := scheduler.AddTask(purgeTokensTask, queue.Hourly()); err != nil {
		return nil, nil, err
	}
	if err := scheduler.AddTask(purgeTasksTask, queue.DailyAt(3, 30)); err != nil {
		return nil, nil, err
	}
	return worker, scheduler, nil
}

func newRouter(ctx context.Context, cfg settings, svc *auth.Service, pool *pgxpool.Pool, rdb *goredis.Client, log *slog.Logger) (http.Handler, error) {
	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return nil, err
	}
	resolver, err := clientip.NewResolver(cfg.ClientIP)
	if err != nil {
		return nil, err
	}
	avatars, err := file.New(ctx, cfg.Avatars)
	if err != nil {
		return nil, err
	}

	var (
		limitStore ratelimiter.Store
		states     oauth.StateStore
	)
	checks := map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)}
	if rdb != nil {
		limitStore = ratelimiter.NewRedisStore(rdb, cfg.Redis.KeyPrefix+"ratelimit:")
		states = oauth.NewRedisStateStore(rdb, cfg.Redis.KeyPrefix+"oauth:")
		checks["redis"] = redis.Healthcheck(rdb)
	} else {
		limitStore = ratelimiter.NewMemoryStore()
		states = oauth.NewMemoryStateStore(nil)
	}
	limiter, err := ratelimiter.NewBucket(limitStore, cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	opts := []account.Option{
		account.WithConfig(cfg.Account),
		account.WithLogger(log),
		account.WithAvatarStorage(avatars),
		account.WithRateLimiter(limiter, resolver),
	}
	var providers []oauth.Provider
	if cfg.Google.Enabled() {
		providers = append(providers, oauth.NewGoogle(cfg.Google))
	}
	if cfg.GitHub.Enabled() {
		providers = append(providers, oauth.NewGitHub(cfg.GitHub))
	}
	if len(providers) > 0 {
		opts = append(opts, account.WithOAuth(oauth.NewManager(states, cfg.OAuth, providers, oauth.WithLogger(log))))
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(resolver.Middleware)
	r.Use(httpserver.AccessLog(log, "/health/live", "/health/ready"))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, cfg.App.HealthTimeout, checks))

	if local, ok := avatars.(*file.LocalStorage); ok && strings.HasPrefix(cfg.Avatars.LocalURL, "/") {
		prefix := strings.TrimSuffix(cfg.Avatars.LocalURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir()))))
	}

	r.Mount("/", account.New(svc, cookies, opts...).Handle())
	return r, nil
}
