package server

import (
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"golang.org/x/time/rate"
)

const maxTrackedIPs = 4096

// ipLimiters hands out one token bucket per remote IP.
type ipLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiters(limitPerMinute, burst int) *ipLimiters {
	if limitPerMinute <= 0 {
		limitPerMinute = 30
	}
	if burst <= 0 {
		burst = 10
	}
	return &ipLimiters{
		limit:    rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxTrackedIPs {
			l.sweep(now)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim.AllowN(now, 1)
}

// sweep forgets buckets that have refilled completely; they behave exactly
// like new ones.
func (l *ipLimiters) sweep(now time.Time) {
	for ip, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, ip)
		}
	}
}

// RateLimitMiddleware enforces per-IP connection limits using a token bucket.
func RateLimitMiddleware(limitPerMinute, burst int, logger *log.Logger) wish.Middleware {
	limiters := newIPLimiters(limitPerMinute, burst)
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			now := time.Now()
			ip := remoteIP(s)
			if !limiters.allow(ip, now) {
				logger.Warn("rate limit throttled", "event", "rate_limit_throttled", "remote_ip", ip)
				wish.Fatalln(s, "rate limit exceeded")
				return
			}
			next(s)
		}
	}
}

func remoteIP(s ssh.Session) string {
	remote := s.RemoteAddr()
	if remote == nil {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		return remote.String()
	}

	if host == "" {
		return "unknown"
	}
	return host
}
