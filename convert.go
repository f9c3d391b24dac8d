package estatement

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/porticus-lab/estatement/internal/pdftext"
)

// Converter turns a downloaded statement into a text file.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// TextPath returns the sibling text file name for a statement: the
// extension of path is replaced with ".txt".
func TextPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
}

// ResolveTool reports whether tool can be executed, either because it is
// found on PATH or because it exists as a file path. It returns the path to
// execute.
func ResolveTool(tool string) (string, bool) {
	if tool == "" {
		return "", false
	}
	if p, err := exec.LookPath(tool); err == nil {
		return p, true
	}
	if st, err := os.Stat(tool); err == nil && !st.IsDir() {
		return tool, true
	}
	return "", false
}

// ExecConverter runs an external pdftotext-compatible tool as
// "<tool> -layout <src> <dst>".
type ExecConverter struct {
	Path string
}

// NewExecConverter resolves tool and returns a converter for it, or
// [ErrNoConverter] if the tool cannot be found.
func NewExecConverter(tool string) (*ExecConverter, error) {
	p, ok := ResolveTool(tool)
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", ErrNoConverter, tool)
	}
	return &ExecConverter{Path: p}, nil
}

func (c *ExecConverter) Convert(ctx context.Context, src, dst string) error {
	out, err := exec.CommandContext(ctx, c.Path, "-layout", src, dst).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("estatement: %s: %w", filepath.Base(c.Path), err)
		}
		return fmt.Errorf("estatement: %s: %w: %s", filepath.Base(c.Path), err, msg)
	}
	return nil
}

// BuiltinConverter extracts text in-process without external tools.
type BuiltinConverter struct{}

func (BuiltinConverter) Convert(_ context.Context, src, dst string) error {
	return pdftext.WriteFile(src, dst)
}
