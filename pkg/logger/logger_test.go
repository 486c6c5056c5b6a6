package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

type ctxKey struct{}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		err := errors.New("boom")
		attr := logger.Error(err)
		require.Equal(t, "error", attr.Key)
		assert.Equal(t, err, attr.Value.Any())
		assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	})

	t.Run("errors skips nil", func(t *testing.T) {
		t.Parallel()
		attr := logger.Errors(errors.New("a"), nil, errors.New("b"))
		require.Equal(t, slog.KindGroup, attr.Value.Kind())
		assert.Len(t, attr.Value.Group(), 2)
		assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
	})

	t.Run("nil ids are empty", func(t *testing.T) {
		t.Parallel()
		assert.True(t, logger.UserID(nil).Equal(slog.Attr{}))
		assert.True(t, logger.RequestID(nil).Equal(slog.Attr{}))
		assert.Equal(t, "user_id", logger.UserID("u1").Key)
		assert.Equal(t, "provider", logger.Provider("google").Key)
	})
}

func TestNew_JSONWithExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAttr(slog.String("service", "test")),
		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
			v, ok := ctx.Value(ctxKey{}).(string)
			return slog.String("request_id", v), ok
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	log.InfoContext(ctx, "hello", logger.Component("auth"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "test", rec["service"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "auth", rec["component"])
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithEnvironment("prod", "authsvc"), logger.WithOutput(&buf))
	log.Debug("hidden")
	log.Info("shown")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "production", rec["env"])
	assert.Equal(t, "authsvc", rec["service"])
}

func TestWithFormat_PanicsOnUnknown(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	assert.False(t, logger.Discard().Enabled(context.Background(), slog.LevelError))
}
