package gateway

import (
	"context"
	"io"
	"sync"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeProc struct {
	out    chan []byte
	done   chan error
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []byte
	size   Size
}

func newFakeProc() *fakeProc {
	return &fakeProc{out: make(chan []byte, 8), done: make(chan error, 1), closed: make(chan struct{})}
}

func (f *fakeProc) Read(p []byte) (int, error) {
	select {
	case chunk := <-f.out:
		return copy(p, chunk), nil
	case <-f.closed:
		return 0, io.EOF
	}
}

func (f *fakeProc) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, p...)
	return len(p), nil
}

func (f *fakeProc) Resize(size Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.size = size
	return nil
}

func (f *fakeProc) Close() error {
	f.once.Do(func() {
		close(f.closed)
		f.done <- nil
	})
	return nil
}

func (f *fakeProc) Done() <-chan error { return f.done }

func (f *fakeProc) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.writes)
}

func (f *fakeProc) currentSize() Size {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *fakeProc) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// fakeLauncher closes the process when the launch context ends, the way
// exec.CommandContext kills its child.
type fakeLauncher struct {
	// gate, when set, holds every launch until it is closed.
	gate chan struct{}

	mu       sync.Mutex
	err      error
	procs    []*fakeProc
	sessions []Session
	sizes    []Size
}

func (l *fakeLauncher) Launch(ctx context.Context, sess Session, size Size) (Process, error) {
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	proc := newFakeProc()
	l.procs = append(l.procs, proc)
	l.sessions = append(l.sessions, sess)
	l.sizes = append(l.sizes, size)
	go func() {
		select {
		case <-ctx.Done():
			_ = proc.Close()
		case <-proc.closed:
		}
	}()
	return proc, nil
}

func (l *fakeLauncher) last() *fakeProc {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}
