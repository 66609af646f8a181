package gateway

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"vibe-terminal/internal/export"
)

const killGrace = 2 * time.Second

// EditorLauncher starts the local editor binary under a pseudo terminal, one
// process per browser session.
type EditorLauncher struct {
	EditorPath string
	Args       []string
	// ExportRoot is split into per-user download directories.
	ExportRoot string
	// MaxDuration closes the process after a fixed lifetime. Zero disables.
	MaxDuration time.Duration
}

func NewEditorLauncher(editorPath, exportRoot string) *EditorLauncher {
	return &EditorLauncher{EditorPath: editorPath, ExportRoot: exportRoot, MaxDuration: sessionTokenTTL}
}

func (l *EditorLauncher) Launch(ctx context.Context, sess Session, size Size) (Process, error) {
	path := l.EditorPath
	if path == "" {
		path = "vibe"
	}
	cmd := exec.CommandContext(ctx, path, l.Args...)
	cmd.Env = editorEnv(sess, l.ExportRoot)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: size.Cols, Rows: size.Rows})
	if err != nil {
		return nil, err
	}
	proc := &ptyProcess{cmd: cmd, pty: ptmx, done: make(chan error, 1)}
	if l.MaxDuration > 0 {
		proc.timer = time.AfterFunc(l.MaxDuration, func() {
			_ = proc.Close()
		})
	}
	go func() {
		proc.done <- cmd.Wait()
		close(proc.done)
		_ = proc.Close()
	}()
	return proc, nil
}

// editorEnv is the whole environment of the child; nothing from the gateway
// process leaks through.
func editorEnv(sess Session, exportRoot string) []string {
	term := sess.Term
	if term == "" {
		term = defaultTerm
	}
	env := []string{
		"LANG=C.UTF-8",
		"LC_ALL=C.UTF-8",
		"TERM=" + term,
		"COLORTERM=truecolor",
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + os.TempDir(),
		"VIBE_CLIPBOARD=osc52",
	}
	if exportRoot != "" {
		env = append(env, "VIBE_EXPORT_DIR="+export.UserDir(exportRoot, sess.User))
	}
	return env
}

type ptyProcess struct {
	cmd   *exec.Cmd
	pty   *os.File
	done  chan error
	timer *time.Timer
	once  sync.Once
}

func (p *ptyProcess) Read(buf []byte) (int, error)   { return p.pty.Read(buf) }
func (p *ptyProcess) Write(data []byte) (int, error) { return p.pty.Write(data) }
func (p *ptyProcess) Resize(size Size) error {
	return pty.Setsize(p.pty, &pty.Winsize{Cols: size.Cols, Rows: size.Rows})
}

func (p *ptyProcess) Close() error {
	var closeErr error
	p.once.Do(func() {
		if p.timer != nil {
			p.timer.Stop()
		}
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Signal(syscall.SIGTERM)
			go func(proc *os.Process) {
				select {
				case <-p.done:
				case <-time.After(killGrace):
					_ = proc.Kill()
				}
			}(p.cmd.Process)
		}
		closeErr = p.pty.Close()
	})
	return closeErr
}

func (p *ptyProcess) Done() <-chan error { return p.done }
