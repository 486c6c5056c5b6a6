package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/queue"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

// Enqueuer is the part of queue.Enqueuer the dispatcher uses.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) (uuid.UUID, error)
}

// Cipher protects tokens while they sit in the queue.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// VerificationEmail is the queue payload of an email-verification message.
type VerificationEmail struct {
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	EncryptedToken string    `json:"token"`
}

// PasswordResetEmail is the queue payload of a password reset message.
type PasswordResetEmail struct {
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	EncryptedToken string    `json:"token"`
}

// Dispatcher enqueues auth mail for background delivery.
type Dispatcher struct {
	enqueuer Enqueuer
	cipher   Cipher
	cfg      Config
}

var _ auth.Mailer = (*Dispatcher)(nil)

// NewDispatcher returns a Dispatcher that enqueues mail on cfg.Queue.
// Tokens are encrypted with cipher before they reach the queue table.
func NewDispatcher(enqueuer Enqueuer, cipher Cipher, cfg Config) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer, cipher: cipher, cfg: cfg}
}

// Dispatch enqueues msg. It returns once the task is stored; delivery
// happens on a queue worker.
func (d *Dispatcher) Dispatch(ctx context.Context, msg auth.MailMessage) error {
	token, err := d.cipher.Encrypt(msg.Token)
	if err != nil {
		return errors.Join(ErrEnqueue, err)
	}

	var payload any
	switch msg.Kind {
	case auth.MailVerification:
		payload = VerificationEmail{UserID: msg.UserID, Email: msg.Email, Name: msg.Name, EncryptedToken: token}
	case auth.MailPasswordReset:
		payload = PasswordResetEmail{UserID: msg.UserID, Email: msg.Email, Name: msg.Name, EncryptedToken: token}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMailKind, msg.Kind)
	}

	if _, err := d.enqueuer.Enqueue(ctx, payload,
		queue.WithQueue(d.cfg.Queue),
		queue.WithMaxAttempts(d.cfg.MaxAttempts),
	); err != nil {
		return errors.Join(ErrEnqueue, err)
	}
	return nil
}
