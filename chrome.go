package estatement

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeLauncher launches Chrome or Chromium through the DevTools Protocol.
type ChromeLauncher struct{}

// Launch starts a browser process and opens one tab.
func (ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
	)
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	if opts.Timeout > 0 {
		allocOpts = append(allocOpts, chromedp.WSURLReadTimeout(opts.Timeout))
	}

	// The browser lives as long as the returned page, not the caller's ctx.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at launch time.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("estatement: starting browser: %w", err)
	}

	p := &chromePage{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}
	chromedp.ListenTarget(tabCtx, p.handleEvent)
	return p, nil
}

type chromePage struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	mu       sync.Mutex
	onDialog func(string)
	// loaded is closed by the first load event that follows a main frame
	// navigation after expectNavigation.
	loaded    chan struct{}
	navigated bool
	closed    bool
}

func (p *chromePage) handleEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		// Listeners must not block on the target they listen to.
		go func() {
			_ = chromedp.Run(p.tabCtx, page.HandleJavaScriptDialog(false))
		}()
		p.mu.Lock()
		fn := p.onDialog
		p.mu.Unlock()
		if fn != nil {
			fn(e.Message)
		}
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		p.mu.Lock()
		if p.loaded != nil {
			p.navigated = true
		}
		p.mu.Unlock()
	case *page.EventLoadEventFired:
		p.mu.Lock()
		if p.loaded != nil && p.navigated {
			close(p.loaded)
			p.loaded = nil
			p.navigated = false
		}
		p.mu.Unlock()
	}
}

// expectNavigation arms the navigation watch. Load events of a document
// that was already loading when it was armed are ignored.
func (p *chromePage) expectNavigation() <-chan struct{} {
	loaded := make(chan struct{})
	p.mu.Lock()
	p.loaded = loaded
	p.navigated = false
	p.mu.Unlock()
	return loaded
}

func (p *chromePage) disarmNavigation() {
	p.mu.Lock()
	p.loaded = nil
	p.navigated = false
	p.mu.Unlock()
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		runCtx, cancelDL = context.WithDeadline(runCtx, dl)
		defer cancelDL()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromePage) WaitVisible(ctx context.Context, sel string) error {
	return p.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (p *chromePage) Click(ctx context.Context, sel string) error {
	return p.run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) Type(ctx context.Context, text string) error {
	return p.run(ctx, chromedp.KeyEvent(text))
}

func (p *chromePage) Select(ctx context.Context, sel, value string) error {
	script := fmt.Sprintf(
		`document.querySelector(%s).dispatchEvent(new Event("change", {bubbles: true}))`,
		strconv.Quote(sel),
	)
	return p.run(ctx,
		chromedp.SetValue(sel, value, chromedp.ByQuery),
		chromedp.Evaluate(script, nil),
	)
}

func (p *chromePage) ClickAndWaitNavigation(ctx context.Context, sel string) error {
	loaded := p.expectNavigation()

	if err := p.Click(ctx, sel); err != nil {
		p.disarmNavigation()
		return err
	}
	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		p.disarmNavigation()
		return ctx.Err()
	}
}

func (p *chromePage) OptionValue(ctx context.Context, selectID, prefix string) (string, bool, error) {
	xpath := fmt.Sprintf(`//*[@id=%s]/option[starts-with(normalize-space(text()), %s)]`,
		xpathLiteral(selectID), xpathLiteral(prefix))

	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return "", false, err
	}
	if len(nodes) == 0 {
		return "", false, nil
	}

	// The value property falls back to the option text when the value
	// attribute is absent.
	var value string
	ids := []cdp.NodeID{nodes[0].NodeID}
	if err := p.run(ctx, chromedp.JavascriptAttribute(ids, "value", &value, chromedp.ByNodeID)); err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *chromePage) ClickLink(ctx context.Context, text string) (bool, error) {
	xpath := fmt.Sprintf(`//a[text()=%s]`, xpathLiteral(text))

	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	if len(nodes) == 0 {
		return false, nil
	}
	return true, p.run(ctx, chromedp.MouseClickNode(nodes[0]))
}

func (p *chromePage) SetDownloadDir(ctx context.Context, dir string) error {
	return p.run(ctx, browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
		WithDownloadPath(dir))
}

func (p *chromePage) OnDialog(fn func(message string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDialog = fn
}

func (p *chromePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.tabCancel()
	p.allocCancel()
	return nil
}

// xpathLiteral quotes s as an XPath 1.0 string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	return `concat("` + strings.Join(parts, `", '"', "`) + `")`
}
