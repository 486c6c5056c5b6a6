package mailer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authsvc/pkg/email"
	"github.com/dmitrymomot/authsvc/pkg/email/templates"
	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/queue"
)

// Handlers returns the queue handlers that deliver VerificationEmail and
// PasswordResetEmail tasks through sender.
func Handlers(cfg Config, cipher Cipher, sender email.EmailSender, log *slog.Logger) []queue.Handler {
	if log == nil {
		log = logger.Discard()
	}
	d := &deliverer{cfg: cfg, cipher: cipher, sender: sender, log: log.With(logger.Component("mailer"))}
	return []queue.Handler{
		queue.NewTaskHandler(d.verification),
		queue.NewTaskHandler(d.passwordReset),
	}
}

// deliverer turns queued payloads into rendered emails. Plain tokens exist
// only in memory between Decrypt and Render.
type deliverer struct {
	cfg    Config
	cipher Cipher
	sender email.EmailSender
	log    *slog.Logger
}

func (d *deliverer) verification(ctx context.Context, p VerificationEmail) error {
	data, err := d.actionData(p.Name, "/verify-email", p.EncryptedToken, d.cfg.VerificationTTL)
	if err != nil {
		return err
	}
	return d.send(ctx, p.Email, "Confirm your email address", "verification", templates.Verification(data))
}

func (d *deliverer) passwordReset(ctx context.Context, p PasswordResetEmail) error {
	data, err := d.actionData(p.Name, "/reset-password", p.EncryptedToken, d.cfg.ResetTTL)
	if err != nil {
		return err
	}
	return d.send(ctx, p.Email, "Reset your password", "password_reset", templates.PasswordReset(data))
}

func (d *deliverer) actionData(name, path, encrypted string, ttl time.Duration) (templates.ActionData, error) {
	// A payload that cannot be decrypted will never succeed.
	token, err := d.cipher.Decrypt(encrypted)
	if err != nil {
		return templates.ActionData{}, errors.Join(queue.ErrSkipRetry, err)
	}
	link, err := d.cfg.link(path, token)
	if err != nil {
		return templates.ActionData{}, errors.Join(queue.ErrSkipRetry, err)
	}
	return templates.ActionData{
		AppName:   d.cfg.AppName,
		Name:      name,
		Link:      link,
		ExpiresIn: humanize(ttl),
	}, nil
}

func (d *deliverer) send(ctx context.Context, to, subject, tag string, body templ.Component) error {
	html, err := templates.Render(ctx, body)
	if err != nil {
		return errors.Join(ErrRender, err)
	}

	err = d.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: html,
		Tag:      tag,
	})
	// Bad recipients fail the same way on every attempt; anything else may be
	// a provider outage and goes back to the queue.
	switch {
	case errors.Is(err, email.ErrInvalidParams):
		d.log.WarnContext(ctx, "undeliverable email dropped", slog.String("tag", tag), logger.Error(err))
		return errors.Join(queue.ErrSkipRetry, err)
	case err != nil:
		return err
	}
	d.log.InfoContext(ctx, "email sent", slog.String("tag", tag))
	return nil
}
