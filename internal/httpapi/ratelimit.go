package httpapi

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiterByKey keys a golang.org/x/time/rate.Limiter per client IP
// for static, non-adaptive throughput limits — applied here as a
// brute-force guard on /auth/login and /auth/register.
type rateLimiterByKey struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newRateLimiterByKey(r rate.Limit, burst int) *rateLimiterByKey {
	return &rateLimiterByKey{limiters: make(map[string]*rate.Limiter), r: r, burst: burst}
}

func (l *rateLimiterByKey) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
