// Package router names the SSH middleware chain and carries per-session
// metadata through the ssh context.
package router

import (
	"context"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/google/uuid"
)

type contextKey string

const metadataContextKey contextKey = "vibe-session-metadata"

// Descriptor is a named middleware. Chains are written outermost first.
type Descriptor struct {
	Name       string
	Middleware wish.Middleware
}

// MiddlewareFromDescriptors converts an outermost-first chain into the order
// wish.WithMiddleware expects, where the last entry wraps all the others.
func MiddlewareFromDescriptors(chain []Descriptor) []wish.Middleware {
	out := make([]wish.Middleware, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Middleware == nil {
			continue
		}
		out = append(out, chain[i].Middleware)
	}
	return out
}

// Names lists descriptor names in chain order.
func Names(chain []Descriptor) []string {
	out := make([]string, 0, len(chain))
	for _, d := range chain {
		out = append(out, d.Name)
	}
	return out
}

// Metadata identifies one editor session.
type Metadata struct {
	ID         string
	User       string
	RemoteAddr string
	StartedAt  time.Time
}

// SessionMetadata assigns every session a fresh id before the editor starts.
func SessionMetadata() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			md := Metadata{
				ID:        uuid.NewString(),
				User:      s.User(),
				StartedAt: time.Now().UTC(),
			}
			if addr := s.RemoteAddr(); addr != nil {
				md.RemoteAddr = addr.String()
			}
			s.Context().SetValue(metadataContextKey, md)
			next(s)
		}
	}
}

// MetadataFrom returns the metadata stored by SessionMetadata.
func MetadataFrom(ctx context.Context) (Metadata, bool) {
	md, ok := ctx.Value(metadataContextKey).(Metadata)
	return md, ok
}
