// Package export saves the buffer as a file, the terminal counterpart of a
// browser download.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"vibe-terminal/internal/catalog"
)

const baseName = "code"

var (
	ErrInvalidName = errors.New("invalid export file name")

	unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Exporter stores data under a suggested file name and returns where it
// ended up.
type Exporter interface {
	Export(name string, data []byte) (string, error)
}

// FileName derives the download name for a language, e.g. "code.py".
func FileName(lang catalog.LanguageID) string {
	return baseName + "." + catalog.Extension(lang)
}

// FileExporter writes exports into a directory. Writes are atomic: the data
// goes to a temp file that is renamed into place, and the temp handle is
// always released.
type FileExporter struct {
	dir  string
	perm os.FileMode
}

// NewFileExporter returns an exporter rooted at dir. The directory is created
// lazily on first export.
func NewFileExporter(dir string) *FileExporter {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "vibe-terminal-exports")
	}
	return &FileExporter{dir: filepath.Clean(dir), perm: 0o644}
}

// Dir returns the export directory.
func (e *FileExporter) Dir() string { return e.dir }

func (e *FileExporter) Export(name string, data []byte) (path string, err error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(e.dir, ".export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = fmt.Errorf("close temp file: %w", closeErr)
		}
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Chmod(e.perm); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	target := filepath.Join(e.dir, name)
	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("move export into place: %w", err)
	}
	committed = true
	return target, nil
}

// UserDir returns a per-user sub-directory of root, with the user name
// reduced to a safe path segment.
func UserDir(root, user string) string {
	seg := unsafeSegment.ReplaceAllString(strings.TrimSpace(user), "_")
	seg = strings.Trim(seg, ".")
	if seg == "" {
		seg = "anonymous"
	}
	return filepath.Join(root, seg)
}
