package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/clientip"
)

func request(remote string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remote
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestResolver_IP(t *testing.T) {
	t.Parallel()

	res, err := clientip.NewResolver(clientip.Config{TrustedProxies: []string{"10.0.0.0/8", "192.168.1.1"}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct peer", "203.0.113.7:5555", nil, "203.0.113.7"},
		{"untrusted peer ignores forwarded header", "203.0.113.7:5555", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.7"},
		{"trusted peer honours real ip", "10.1.2.3:80", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"cloudflare header wins", "10.1.2.3:80", map[string]string{"CF-Connecting-IP": "198.51.100.9", "X-Real-IP": "198.51.100.4"}, "198.51.100.9"},
		{"xff rightmost untrusted hop", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.4, 10.0.0.2"}, "198.51.100.4"},
		{"xff garbage falls back to peer", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
		{"ipv6 peer", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"ipv4 mapped ipv6", "[::ffff:203.0.113.7]:443", nil, "203.0.113.7"},
		{"remote without port", "203.0.113.7", nil, "203.0.113.7"},
		{"unparseable remote", "garbage", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, res.IP(request(tt.remote, tt.headers)))
		})
	}
}

func TestNewResolver_InvalidProxy(t *testing.T) {
	t.Parallel()

	_, err := clientip.NewResolver(clientip.Config{TrustedProxies: []string{"10.0.0.0/99"}})
	require.ErrorIs(t, err, clientip.ErrInvalidProxy)

	_, err = clientip.NewResolver(clientip.Config{TrustedProxies: []string{"nope"}})
	require.ErrorIs(t, err, clientip.ErrInvalidProxy)
}

func TestResolver_Middleware(t *testing.T) {
	t.Parallel()

	res, err := clientip.NewResolver(clientip.Config{})
	require.NoError(t, err)

	var seen, key string
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientip.FromContext(r.Context())
		key = res.Key(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), request("203.0.113.7:1", nil))

	assert.Equal(t, "203.0.113.7", seen)
	assert.Equal(t, "203.0.113.7", key)
}
