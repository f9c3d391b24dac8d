package estatement

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// fakePage records every call as "Method arg..." and simulates the portal.
type fakePage struct {
	portal Portal

	mu sync.Mutex
	// accounts maps an account prefix to its option value.
	accounts    map[string]string
	logoutFound bool
	failOn      map[string]error
	blockOn     map[string]bool
	dialogOn    map[string]string
	// content is written as the downloaded statement.
	content []byte
	// partial leaves the download marked as in progress.
	partial bool
	// dialogAfterDownload, when set, raises a dialog shortly after the
	// download button is clicked instead of delivering a file.
	dialogAfterDownload string

	calls       []string
	onDialog    func(string)
	downloadDir string
	downloads   int
	closed      int
}

func newFakePage() *fakePage {
	return &fakePage{
		portal:      DefaultPortal(),
		accounts:    map[string]string{"0123456789": "acct-1"},
		logoutFound: true,
		failOn:      map[string]error{},
		blockOn:     map[string]bool{},
		dialogOn:    map[string]string{},
		content:     []byte("%PDF-1.4"),
	}
}

func (f *fakePage) step(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.failOn[call]
	block := f.blockOn[call]
	msg, dialog := f.dialogOn[call]
	fn := f.onDialog
	f.mu.Unlock()

	if dialog && fn != nil {
		fn(msg)
		return nil
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	return f.step(ctx, "Navigate "+url)
}

func (f *fakePage) WaitVisible(ctx context.Context, sel string) error {
	return f.step(ctx, "WaitVisible "+sel)
}

func (f *fakePage) Click(ctx context.Context, sel string) error {
	if err := f.step(ctx, "Click "+sel); err != nil {
		return err
	}
	if sel != f.portal.DownloadButton {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if msg := f.dialogAfterDownload; msg != "" {
		fn := f.onDialog
		go func() {
			time.Sleep(50 * time.Millisecond)
			fn(msg)
		}()
		return nil
	}
	name := fmt.Sprintf("estatement_%d.pdf", f.downloads)
	if f.partial {
		name += inProgressSuffix
	}
	return os.WriteFile(filepath.Join(f.downloadDir, name), f.content, 0o644)
}

func (f *fakePage) Type(ctx context.Context, text string) error {
	return f.step(ctx, "Type "+text)
}

func (f *fakePage) Select(ctx context.Context, sel, value string) error {
	return f.step(ctx, "Select "+sel+" "+value)
}

func (f *fakePage) ClickAndWaitNavigation(ctx context.Context, sel string) error {
	return f.step(ctx, "ClickAndWaitNavigation "+sel)
}

func (f *fakePage) OptionValue(ctx context.Context, selectID, prefix string) (string, bool, error) {
	if err := f.step(ctx, "OptionValue "+selectID+" "+prefix); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for text, value := range f.accounts {
		if strings.HasPrefix(text, prefix) {
			return value, true, nil
		}
	}
	return "", false, nil
}

func (f *fakePage) ClickLink(ctx context.Context, text string) (bool, error) {
	if err := f.step(ctx, "ClickLink "+text); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutFound, nil
}

func (f *fakePage) SetDownloadDir(ctx context.Context, dir string) error {
	f.mu.Lock()
	f.downloadDir = dir
	f.mu.Unlock()
	return f.step(ctx, "SetDownloadDir")
}

func (f *fakePage) OnDialog(fn func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDialog = fn
}

func (f *fakePage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePage) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakePage) launcher() Launcher {
	return LauncherFunc(func(context.Context, LaunchOptions) (Page, error) {
		return f, nil
	})
}

// fakeConverter writes a fixed text file or fails with err.
type fakeConverter struct {
	err   error
	calls []string
}

func (c *fakeConverter) Convert(_ context.Context, src, dst string) error {
	c.calls = append(c.calls, src+" -> "+dst)
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(dst, []byte("statement"), 0o644)
}

type fakeRecorder struct {
	records []Record
}

func (r *fakeRecorder) Record(_ context.Context, rec Record) error {
	r.records = append(r.records, rec)
	return nil
}

// panicConverter simulates a converter that crashes.
type panicConverter struct{}

func (panicConverter) Convert(context.Context, string, string) error {
	panic("converter crashed")
}
