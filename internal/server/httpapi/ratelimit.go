package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter keeps one token bucket per key and forgets keys idle for
// longer than ttl. Idle keys are swept at most once per ttl.
type loginLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	entries   map[string]*limBucket
	lastSweep time.Time
	now       func() time.Time
}

type limBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// newLoginLimiter allows perMinute attempts per minute with an equal burst.
// A non-positive perMinute disables limiting.
func newLoginLimiter(perMinute int, ttl time.Duration) *loginLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &loginLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		ttl:     ttl,
		entries: make(map[string]*limBucket),
		now:     time.Now,
	}
}

func (m *loginLimiter) allow(key string) bool {
	if m == nil {
		return true
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.ttl {
		m.sweep(now)
	}

	b := m.entries[key]
	if b == nil {
		b = &limBucket{lim: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// sweep drops idle keys. Callers hold mu.
func (m *loginLimiter) sweep(now time.Time) {
	for k, v := range m.entries {
		if now.Sub(v.lastSeen) > m.ttl {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}

// ipResolver finds the client address of a request. X-Forwarded-For is
// only read when the TCP peer is a trusted proxy, and then walked from the
// right past every trusted hop.
type ipResolver struct {
	trusted []netip.Prefix
}

func (p ipResolver) isTrusted(a netip.Addr) bool {
	a = a.Unmap()
	for _, pr := range p.trusted {
		if pr.Contains(a) {
			return true
		}
	}
	return false
}

func (p ipResolver) clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}

	peer, err := netip.ParseAddr(host)
	if err != nil || !p.isTrusted(peer) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := host
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		a, err := netip.ParseAddr(hop)
		if err != nil {
			break
		}
		client = a.Unmap().String()
		if !p.isTrusted(a) {
			break
		}
	}
	return client
}

func (s *Server) loginKey(r *http.Request, hint, username string) string {
	return s.ips.clientIP(r) + "|" + strings.ToLower(hint) + "|" + strings.ToLower(username)
}
