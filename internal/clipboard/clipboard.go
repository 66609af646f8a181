// Package clipboard delivers buffer text to the user's clipboard, either the
// local system clipboard or the terminal's via OSC 52 escape sequences.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

var (
	// ErrUnavailable means no clipboard could be reached.
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrTooLarge means the text exceeds what the transport accepts.
	ErrTooLarge = errors.New("clipboard payload too large")
)

// Writer puts text on a clipboard. Implementations may block.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, text string) error

func (f WriterFunc) Write(ctx context.Context, text string) error { return f(ctx, text) }

// OSC52 writes an OSC 52 sequence to a terminal output stream. The terminal
// emulator on the user's side sets its clipboard, which works through SSH.
type OSC52 struct {
	mu    sync.Mutex
	out   io.Writer
	term  string
	limit int
}

// DefaultOSC52Limit caps the payload; many terminals drop larger sequences.
const DefaultOSC52Limit = 100_000

// NewOSC52 returns a writer targeting out. term selects tmux/screen
// passthrough wrapping.
func NewOSC52(out io.Writer, term string) *OSC52 {
	return &OSC52{out: out, term: strings.ToLower(strings.TrimSpace(term)), limit: DefaultOSC52Limit}
}

func (o *OSC52) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.out == nil {
		return ErrUnavailable
	}
	if o.limit > 0 && len(text) > o.limit {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(text), o.limit)
	}

	seq := osc52.New(text)
	switch {
	case strings.HasPrefix(o.term, "tmux"):
		seq = seq.Tmux()
	case strings.HasPrefix(o.term, "screen"):
		seq = seq.Screen()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := seq.WriteTo(o.out); err != nil {
		return fmt.Errorf("write osc52 sequence: %w", err)
	}
	return nil
}

// System writes to the host clipboard of the machine running the program.
type System struct{}

func (System) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Chain tries each writer in order and stops at the first success. The
// returned error joins every failure.
type Chain []Writer

func (c Chain) Write(ctx context.Context, text string) error {
	if len(c) == 0 {
		return ErrUnavailable
	}
	var errs []error
	for _, w := range c {
		err := w.Write(ctx, text)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
