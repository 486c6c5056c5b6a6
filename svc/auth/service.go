package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/token"
)

// PasswordHasher hashes and verifies passwords. Verify returns an error only
// for malformed hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(encoded, plain string) (bool, error)
}

// SecretHasher derives storage digests of opaque tokens.
type SecretHasher interface {
	Hash(plain string) (string, error)
	Generate(n int) (token.Pair, error)
}

// Cipher encrypts provider tokens at rest. Empty input passes through.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// Mailer hands messages to the mail dispatcher. Delivery is asynchronous.
type Mailer interface {
	Dispatch(ctx context.Context, msg MailMessage) error
}

// EventPublisher publishes domain events keyed by user id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Service implements the authentication operations.
type Service struct {
	store     Store
	codec     *TokenCodec
	secrets   SecretHasher
	passwords PasswordHasher
	cipher    Cipher
	mailer    Mailer
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	cfg       Config

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMailer sets where verification and reset mails go. Dispatch failures
// are logged, never returned, so a mail outage cannot block signup.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

// WithEvents sets the publisher for domain events. Publishing is best
// effort in the same way as mail.
func WithEvents(p EventPublisher) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithClock sets the time source used for token expiry checks.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConfig applies token lifetimes and the unverified-login policy.
// Secrets in cfg are ignored; they are consumed by the primitives.
func WithConfig(cfg Config) ServiceOption {
	return func(s *Service) { s.cfg = cfg }
}

// NewService wires the credential core. Mail and events default to no-ops.
func NewService(store Store, codec *TokenCodec, secrets SecretHasher, passwords PasswordHasher, cipher Cipher, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		codec:     codec,
		secrets:   secrets,
		passwords: passwords,
		cipher:    cipher,
		mailer:    noopMailer{},
		events:    noopPublisher{},
		logger:    logger.Discard(),
		now:       time.Now,
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// issueSession signs an access and a refresh token for u and persists the
// refresh token digest through q.
func (s *Service) issueSession(ctx context.Context, q Queries, u *User) (Session, error) {
	access, _, err := s.codec.Issue(KindAccess, u.ID, u.Email, s.cfg.AccessTokenTTL)
	if err != nil {
		return Session{}, err
	}
	refresh, refreshExp, err := s.codec.Issue(KindRefresh, u.ID, u.Email, s.cfg.RefreshTokenTTL)
	if err != nil {
		return Session{}, err
	}
	digest, err := s.secrets.Hash(refresh)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	if err := q.CreateRefreshToken(ctx, &RefreshToken{
		ID:        uuid.New(),
		UserID:    u.ID,
		TokenHash: digest,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.cfg.AccessTokenTTL / time.Second),
		RefreshExpiresAt: refreshExp,
		User:             u.View(),
	}, nil
}

// oneTimeToken generates a token for userID and returns the plaintext and
// the record to persist.
func (s *Service) oneTimeToken(userID uuid.UUID, ttl time.Duration) (string, *OneTimeToken, error) {
	pair, err := s.secrets.Generate(token.DefaultLength)
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	return pair.Plain, &OneTimeToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: pair.Hash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// dispatch enqueues msg. Failures are logged and otherwise ignored.
func (s *Service) dispatch(ctx context.Context, msg MailMessage) {
	if err := s.mailer.Dispatch(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue email",
			slog.String("kind", string(msg.Kind)),
			logger.UserID(msg.UserID),
			logger.Error(err),
			logger.Component("auth"),
		)
	}
}

// publish emits a domain event. Failures are logged and otherwise ignored.
func (s *Service) publish(ctx context.Context, typ string, userID uuid.UUID, data map[string]any) {
	ev := Event{Type: typ, UserID: userID, OccurredAt: s.now(), Data: data}
	if err := s.events.Publish(ctx, userID.String(), ev); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			logger.Event(typ),
			logger.UserID(userID),
			logger.Error(err),
			logger.Component("auth"),
		)
	}
}

// dummyPasswordHash returns a valid hash used to keep the timing of logins
// for unknown emails close to that of wrong passwords.
func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *Service) loadUser(ctx context.Context, q Queries, id uuid.UUID) (*User, error) {
	u, err := q.GetUserByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

type noopMailer struct{}

func (noopMailer) Dispatch(context.Context, MailMessage) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
