package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/requestid"
)

// serve runs the middleware with inbound as the X-Request-ID header and
// returns the id seen by the handler and the echoed response header.
func serve(t *testing.T, inbound string) (seen, echoed string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(requestid.Header, inbound)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddlewareKeepsWellFormedIDs(t *testing.T) {
	t.Parallel()

	for _, id := range []string{
		"abc123",
		"ABC-123_xyz",
		"550e8400-e29b-41d4-a716-446655440000",
		strings.Repeat("a", 128),
	} {
		t.Run(id, func(t *testing.T) {
			t.Parallel()
			seen, echoed := serve(t, id)
			assert.Equal(t, id, seen)
			assert.Equal(t, id, echoed)
		})
	}
}

func TestMiddlewareReplacesMalformedIDs(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing":    "",
		"spaces":     "test request id",
		"separators": "a/b\\c",
		"markup":     "<script>alert(1)</script>",
		"too long":   strings.Repeat("a", 129),
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			seen, echoed := serve(t, id)
			require.NotEmpty(t, seen)
			assert.NotEqual(t, id, seen)
			assert.Equal(t, seen, echoed)

			parsed, err := uuid.Parse(seen)
			require.NoError(t, err)
			assert.Equal(t, uuid.Version(7), parsed.Version())
		})
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "req-1", requestid.FromContext(requestid.WithContext(context.Background(), "req-1")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
}
