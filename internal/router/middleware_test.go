package router

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContext struct {
	context.Context
	mu     sync.Mutex
	values map[any]any
}

func newFakeContext() *fakeContext {
	return &fakeContext{Context: context.Background(), values: map[any]any{}}
}

func (f *fakeContext) Lock()                         { f.mu.Lock() }
func (f *fakeContext) Unlock()                       { f.mu.Unlock() }
func (f *fakeContext) User() string                  { return "guest" }
func (f *fakeContext) SessionID() string             { return "router-test" }
func (f *fakeContext) ClientVersion() string         { return "ssh-test-client" }
func (f *fakeContext) ServerVersion() string         { return "ssh-test-server" }
func (f *fakeContext) RemoteAddr() net.Addr          { return nil }
func (f *fakeContext) LocalAddr() net.Addr           { return nil }
func (f *fakeContext) Permissions() *ssh.Permissions { return &ssh.Permissions{} }
func (f *fakeContext) SetValue(key, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}
func (f *fakeContext) Value(key interface{}) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v
	}
	return f.Context.Value(key)
}

// fakeSession implements only what the middleware touches; the embedded
// interface panics on anything else.
type fakeSession struct {
	ssh.Session
	user   string
	remote net.Addr
	ctx    *fakeContext
}

func (f *fakeSession) User() string         { return f.user }
func (f *fakeSession) RemoteAddr() net.Addr { return f.remote }
func (f *fakeSession) Context() ssh.Context { return f.ctx }

func newFakeSession(user string) *fakeSession {
	return &fakeSession{
		user:   user,
		remote: &net.TCPAddr{IP: net.ParseIP("203.0.113.7"), Port: 50022},
		ctx:    newFakeContext(),
	}
}

func tracing(name string, trace *[]string) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			*trace = append(*trace, name)
			next(s)
		}
	}
}

func TestMiddlewareFromDescriptorsRunsOutermostFirst(t *testing.T) {
	var trace []string
	chain := []Descriptor{
		{Name: "logging", Middleware: tracing("logging", &trace)},
		{Name: "rate-limit", Middleware: tracing("rate-limit", &trace)},
		{Name: "disabled"},
		{Name: "editor", Middleware: tracing("editor", &trace)},
	}

	mw := MiddlewareFromDescriptors(chain)
	require.Len(t, mw, 3)

	// Compose the way wish.WithMiddleware does.
	h := func(ssh.Session) {}
	for _, m := range mw {
		h = m(h)
	}
	h(newFakeSession("ada"))

	assert.Equal(t, []string{"logging", "rate-limit", "editor"}, trace)
	assert.Equal(t, []string{"logging", "rate-limit", "disabled", "editor"}, Names(chain))
}

func TestSessionMetadataAssignsIDBeforeHandler(t *testing.T) {
	s := newFakeSession("ada")
	var seen Metadata
	SessionMetadata()(func(sess ssh.Session) {
		md, ok := MetadataFrom(sess.Context())
		require.True(t, ok)
		seen = md
	})(s)

	_, err := uuid.Parse(seen.ID)
	assert.NoError(t, err)
	assert.Equal(t, "ada", seen.User)
	assert.Equal(t, "203.0.113.7:50022", seen.RemoteAddr)
	assert.False(t, seen.StartedAt.IsZero())
}

func TestSessionMetadataIDsAreUnique(t *testing.T) {
	ids := map[string]bool{}
	mw := SessionMetadata()
	for i := 0; i < 20; i++ {
		s := newFakeSession("ada")
		mw(func(sess ssh.Session) {
			md, _ := MetadataFrom(sess.Context())
			ids[md.ID] = true
		})(s)
	}
	assert.Len(t, ids, 20)
}

func TestMetadataFromMissing(t *testing.T) {
	_, ok := MetadataFrom(context.Background())
	assert.False(t, ok)
}
