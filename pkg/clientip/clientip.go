package clientip

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ErrInvalidProxy is returned for a trusted proxy entry that is neither an
// address nor a CIDR prefix.
var ErrInvalidProxy = errors.New("clientip: invalid trusted proxy")

// Config lists the proxies whose forwarding headers are honoured.
type Config struct {
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Resolver determines the client address of a request. Forwarding headers are
// only read when the direct peer belongs to a trusted prefix, so a client
// cannot pick its own rate limit bucket by spoofing X-Forwarded-For.
type Resolver struct {
	trusted []netip.Prefix
	headers []string
}

// NewResolver parses trusted proxies given as CIDRs or bare addresses.
func NewResolver(cfg Config) (*Resolver, error) {
	r := &Resolver{
		headers: []string{"CF-Connecting-IP", "X-Real-IP"},
	}
	for _, raw := range cfg.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, errors.Join(ErrInvalidProxy, fmt.Errorf("%q: %w", raw, err))
			}
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, errors.Join(ErrInvalidProxy, fmt.Errorf("%q: %w", raw, err))
		}
		r.trusted = append(r.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return r, nil
}

// IP returns the normalised client address or "" when none can be parsed.
func (res *Resolver) IP(r *http.Request) string {
	peer, ok := parseRemote(r.RemoteAddr)
	if !ok {
		return ""
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	for _, h := range res.headers {
		if addr, ok := parseAddr(r.Header.Get(h)); ok {
			return addr.String()
		}
	}

	// Walk X-Forwarded-For from the right, skipping our own proxies.
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseAddr(hops[i])
			if !ok {
				break
			}
			if !res.isTrusted(addr) {
				return addr.String()
			}
		}
	}

	return peer.String()
}

func (res *Resolver) isTrusted(addr netip.Addr) bool {
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parseRemote(remote string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	return parseAddr(host)
}

func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}
