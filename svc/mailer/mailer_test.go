package mailer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/email"
	"github.com/dmitrymomot/authsvc/pkg/queue"
	"github.com/dmitrymomot/authsvc/pkg/secrets"
	"github.com/dmitrymomot/authsvc/svc/auth"
	"github.com/dmitrymomot/authsvc/svc/mailer"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return m.Called(ctx, params).Error(0)
}

type fixture struct {
	storage    *queue.MemoryStorage
	dispatcher *mailer.Dispatcher
	worker     *queue.Worker
	sender     *mockSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cipher, err := secrets.NewCipher("0123456789abcdef0123456789abcdef", "test")
	require.NoError(t, err)

	cfg := mailer.Config{
		AppName:         "Acme",
		BaseURL:         "https://acme.test/app",
		Queue:           "mail",
		MaxAttempts:     3,
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	}

	storage := queue.NewMemoryStorage(time.Now)
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	sender := &mockSender{}
	worker, err := queue.NewWorker(storage, queue.WithQueues("mail"), queue.WithRetryBackoff(time.Hour, time.Hour))
	require.NoError(t, err)
	require.NoError(t, worker.Register(mailer.Handlers(cfg, cipher, sender, nil)...))

	return &fixture{
		storage:    storage,
		dispatcher: mailer.NewDispatcher(enq, cipher, cfg),
		worker:     worker,
		sender:     sender,
	}
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	t.Run("payload does not carry the plaintext token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.dispatcher.Dispatch(context.Background(), auth.MailMessage{
			Kind: auth.MailVerification, UserID: uuid.New(), Email: "a@x.com", Token: "plain-token-value",
		})
		require.NoError(t, err)

		tasks := f.storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, "mail", tasks[0].Queue)
		assert.Equal(t, queue.TaskName[mailer.VerificationEmail](), tasks[0].Name)
		assert.Equal(t, 3, tasks[0].MaxAttempts)
		assert.NotContains(t, string(tasks[0].Payload), "plain-token-value")

		var p mailer.VerificationEmail
		require.NoError(t, json.Unmarshal(tasks[0].Payload, &p))
		assert.Equal(t, "a@x.com", p.Email)
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.dispatcher.Dispatch(context.Background(), auth.MailMessage{Kind: "welcome", Email: "a@x.com"})
		assert.ErrorIs(t, err, mailer.ErrUnknownMailKind)
		assert.Empty(t, f.storage.Tasks())
	})
}

func TestDelivery(t *testing.T) {
	t.Parallel()

	t.Run("verification link", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		f.sender.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
			return p.SendTo == "a@x.com" &&
				p.Tag == "verification" &&
				assert.Contains(t, p.BodyHTML, "https://acme.test/app/verify-email?token=tok%2Bv") &&
				assert.Contains(t, p.BodyHTML, "expires in 1 day")
		})).Return(nil).Once()

		require.NoError(t, f.dispatcher.Dispatch(ctx, auth.MailMessage{
			Kind: auth.MailVerification, Email: "a@x.com", Token: "tok+v", Name: "Ann",
		}))

		processed, err := f.worker.ProcessNext(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
		f.sender.AssertExpectations(t)
		assert.Equal(t, queue.TaskStatusCompleted, f.storage.Tasks()[0].Status)
	})

	t.Run("reset link", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		f.sender.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
			return p.Tag == "password_reset" &&
				assert.Contains(t, p.BodyHTML, "/reset-password?token=r") &&
				assert.Contains(t, p.BodyHTML, "1 hour")
		})).Return(nil).Once()

		require.NoError(t, f.dispatcher.Dispatch(ctx, auth.MailMessage{Kind: auth.MailPasswordReset, Email: "b@x.com", Token: "r"}))
		_, err := f.worker.ProcessNext(ctx)
		require.NoError(t, err)
		f.sender.AssertExpectations(t)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		f.sender.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
		require.NoError(t, f.dispatcher.Dispatch(ctx, auth.MailMessage{Kind: auth.MailVerification, Email: "a@x.com", Token: "t"}))

		_, err := f.worker.ProcessNext(ctx)
		require.NoError(t, err)

		task := f.storage.Tasks()[0]
		assert.Equal(t, queue.TaskStatusPending, task.Status)
		assert.Contains(t, task.LastError, "smtp down")
	})

	t.Run("invalid recipient is not retried", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		f.sender.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrInvalidParams).Once()
		require.NoError(t, f.dispatcher.Dispatch(ctx, auth.MailMessage{Kind: auth.MailVerification, Email: "bad", Token: "t"}))

		_, err := f.worker.ProcessNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusFailed, f.storage.Tasks()[0].Status)
	})
}
