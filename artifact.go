package estatement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Artifact is a statement retrieved for one period.
type Artifact struct {
	Period   Period
	Filename string
	// Path is where the statement was moved to.
	Path string
	// TextPath is the converted text file, empty if conversion did not run
	// or failed.
	TextPath string
}

// Record describes a retrieved statement for a [Recorder].
type Record struct {
	RunID        string
	Account      string
	Period       Period
	Path         string
	TextPath     string
	DownloadedAt time.Time
}

// Recorder persists retrieved statements.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// moveFile relocates src to dst, copying when a rename is not possible
// (for example across filesystems).
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fsError("moving download", err)
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fsError("removing staged download", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fsError("opening staged download", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fsError("creating statement file", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fsError("copying download", err)
	}
	if err := out.Close(); err != nil {
		return fsError("closing statement file", err)
	}
	return nil
}

func fsError(what string, err error) error {
	return &Error{
		Kind:    KindFilesystem,
		Message: fmt.Sprintf("estatement: %s: %v", what, err),
		Err:     err,
	}
}

// ensureDir expands and creates dir, returning its absolute path.
func ensureDir(dir string) (string, error) {
	dir, err := ExpandHome(dir)
	if err != nil {
		return "", fsError("resolving home directory", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fsError("resolving path", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fsError("creating target directory", err)
	}
	return abs, nil
}
