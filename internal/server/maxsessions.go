package server

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

// MaxSessionsMiddleware caps concurrent sessions. A slot is freed when the
// handler returns, panics, or the session context ends, whichever comes
// first, and never twice.
func MaxSessionsMiddleware(limit int, logger *log.Logger) wish.Middleware {
	if limit <= 0 {
		limit = 32
	}
	slots := make(chan struct{}, limit)

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			select {
			case slots <- struct{}{}:
			default:
				logger.Warn("max sessions exceeded", "event", "max_sessions_exceeded", "limit", limit, "remote_ip", remoteIP(s))
				wish.Fatalln(s, "max sessions exceeded")
				return
			}

			var once sync.Once
			release := func() { once.Do(func() { <-slots }) }
			defer release()

			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-s.Context().Done():
					release()
				case <-done:
				}
			}()

			defer func() {
				if r := recover(); r != nil {
					logger.Error("session panic", "event", "session_panic", "panic", r, "remote_ip", remoteIP(s))
				}
			}()
			next(s)
		}
	}
}
