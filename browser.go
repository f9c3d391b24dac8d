package estatement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

// Page is the browser automation capability the session pipeline drives.
// Every blocking method honors ctx; the pipeline bounds each call with the
// configured action timeout.
//
// [Launcher.Launch] returns a Page backed by Chrome via the DevTools
// Protocol. Tests substitute a fake.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the element matched by sel is visible.
	WaitVisible(ctx context.Context, sel string) error
	// Click clicks the element matched by sel.
	Click(ctx context.Context, sel string) error
	// Type sends text as keystrokes to the focused element.
	Type(ctx context.Context, text string) error
	// Select picks value in the <select> matched by sel.
	Select(ctx context.Context, sel, value string) error
	// ClickAndWaitNavigation clicks sel and blocks until the resulting
	// navigation has finished loading.
	ClickAndWaitNavigation(ctx context.Context, sel string) error
	// OptionValue returns the value property of the first option of the
	// <select> with the given id whose text begins with prefix.
	OptionValue(ctx context.Context, selectID, prefix string) (value string, found bool, err error)
	// ClickLink clicks the first link whose visible text equals text.
	ClickLink(ctx context.Context, text string) (found bool, err error)
	// SetDownloadDir makes subsequent downloads land in dir.
	SetDownloadDir(ctx context.Context, dir string) error
	// OnDialog registers fn to be called with the message of every native
	// dialog. The dialog is dismissed concurrently with fn, so fn must not
	// rely on the page being interactive yet.
	OnDialog(fn func(message string))
	// Close shuts the browser down. Close is idempotent.
	Close() error
}

// LaunchOptions configures a browser session.
type LaunchOptions struct {
	Headless   bool
	Timeout    time.Duration
	ChromePath string
	NoSandbox  bool
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Page, error)
}

// LauncherFunc adapts a function to [Launcher].
type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Page, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	return f(ctx, opts)
}

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("estatement: downloading browser: %w", err)
	}
	return path, nil
}
