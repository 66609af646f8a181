package server

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestRateLimitMiddlewareThrottlesByIP(t *testing.T) {
	middleware := RateLimitMiddleware(60, 2, quietLogger())
	called := 0
	handler := middleware(func(ssh.Session) { called++ })

	sessions := make([]*fakeSession, 3)
	for i := range sessions {
		sessions[i] = newFakeSession(context.Background(), "guest", "203.0.113.10", true)
		handler(sessions[i])
	}

	assert.Equal(t, 2, called)
	assert.Equal(t, "rate limit exceeded\n", sessions[2].stderr.String())
	code, ok := sessions[2].recordedExitCode()
	require.True(t, ok)
	assert.Equal(t, 1, code)
	_, ok = sessions[0].recordedExitCode()
	assert.False(t, ok)
}

func TestRateLimitMiddlewareIsolatedPerIP(t *testing.T) {
	middleware := RateLimitMiddleware(60, 1, quietLogger())
	called := 0
	handler := middleware(func(ssh.Session) { called++ })

	a1 := newFakeSession(context.Background(), "guest", "203.0.113.10", true)
	a2 := newFakeSession(context.Background(), "guest", "203.0.113.10", true)
	b := newFakeSession(context.Background(), "guest", "203.0.113.11", true)

	handler(a1)
	handler(a2)
	handler(b)

	assert.Equal(t, 2, called)
	assert.NotEmpty(t, a2.stderr.String())
	assert.Empty(t, b.stderr.String())
}

func TestIPLimitersRefillAndSweep(t *testing.T) {
	l := newIPLimiters(60, 1)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.allow("198.51.100.1", now))
	assert.False(t, l.allow("198.51.100.1", now))
	assert.True(t, l.allow("198.51.100.1", now.Add(time.Second)))

	l.sweep(now.Add(time.Second))
	assert.Contains(t, l.limiters, "198.51.100.1", "drained bucket is kept")
	l.sweep(now.Add(5 * time.Second))
	assert.NotContains(t, l.limiters, "198.51.100.1")
}

func TestNewIPLimitersDefaults(t *testing.T) {
	l := newIPLimiters(0, 0)
	assert.Equal(t, 10, l.burst)
	for i := 0; i < 10; i++ {
		assert.True(t, l.allow("192.0.2.1", time.Unix(0, 0)))
	}
	assert.False(t, l.allow("192.0.2.1", time.Unix(0, 0)))
}

func TestRemoteIPFallbacks(t *testing.T) {
	s := newFakeSession(context.Background(), "guest", "203.0.113.10", true)
	assert.Equal(t, "203.0.113.10", remoteIP(s))

	s.remote = nil
	assert.Equal(t, "unknown", remoteIP(s))

	s.remote = testAddr("opaque")
	assert.Equal(t, "opaque", remoteIP(s))
}

type testAddr string

func (a testAddr) Network() string { return "test" }
func (a testAddr) String() string  { return string(a) }
