package estatement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// State is a stage of the session pipeline.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateAuthenticating
	StateRetrieving
	StateLoggingOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateAuthenticating:
		return "authenticating"
	case StateRetrieving:
		return "retrieving"
	case StateLoggingOut:
		return "logging-out"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Downloader retrieves e-statements for one account.
//
// Each call to [Downloader.Run] drives a fresh browser session through
// launch, login, retrieval of every period in the work list, logout and
// shutdown. Periods are retrieved one at a time.
type Downloader struct {
	account  string
	username string
	password string
	cfg      config
}

// New creates a Downloader for account using the given portal credentials.
func New(account, username, password string, opts ...Option) (*Downloader, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	switch {
	case account == "":
		return nil, configError("account number is required")
	case username == "":
		return nil, configError("username is required")
	case password == "":
		return nil, configError("password is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Downloader{
		account:  account,
		username: username,
		password: password,
		cfg:      cfg,
	}, nil
}

// Run executes one session. It returns the statements retrieved before the
// first failure, and that failure if any. Logout and browser shutdown are
// always attempted; errors from either are discarded so the original cause
// is preserved.
func (d *Downloader) Run(ctx context.Context) ([]Artifact, error) {
	runID := uuid.NewString()
	s := &session{
		d:     d,
		cfg:   &d.cfg,
		runID: runID,
		log:   d.cfg.logger.With("run", runID),
	}
	return s.run(ctx)
}

// session is the state of a single Run. The page is owned exclusively by
// the session for its whole lifetime.
type session struct {
	d     *Downloader
	cfg   *config
	runID string
	log   *slog.Logger

	page      Page
	dir       string
	loggedIn  bool
	state     State
	artifacts []Artifact

	// failure is written from the pipeline and from the dialog listener.
	mu      sync.Mutex
	failure error
	cancel  context.CancelCauseFunc
}

func (s *session) run(parent context.Context) ([]Artifact, error) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	s.cancel = cancel
	defer s.cleanup(context.WithoutCancel(parent))

	stages := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateLaunching, s.launch},
		{StateAuthenticating, s.login},
		{StateRetrieving, s.retrieveAll},
	}
	for _, st := range stages {
		s.transition(st.state)
		if err := st.fn(ctx); err != nil {
			s.fail(err)
		}
		if s.err() != nil {
			break
		}
	}
	return s.artifacts, s.err()
}

// cleanup logs out when a login succeeded and closes the browser. It runs
// even when a stage panics; its own errors are discarded.
func (s *session) cleanup(ctx context.Context) {
	if s.loggedIn {
		s.transition(StateLoggingOut)
		if err := s.logout(ctx); err != nil {
			s.log.Debug("logout failed", "error", err)
		}
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.log.Debug("closing browser failed", "error", err)
		}
	}
	s.transition(StateClosed)
}

func (s *session) transition(to State) {
	s.log.Debug("session state", "from", s.state, "to", to)
	s.state = to
}

// fail records err unless a failure is already recorded, and aborts any
// browser action in flight.
func (s *session) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	first := s.failure == nil
	if first {
		s.failure = err
	}
	s.mu.Unlock()

	if first {
		s.log.Debug("session failed", "error", err)
		s.cancel(err)
	}
}

func (s *session) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

func (s *session) handleDialog(message string) {
	s.fail(&Error{Kind: KindDialogInterrupt, Message: message})
}

// act runs one browser action bounded by the configured timeout.
func (s *session) act(ctx context.Context, what string, fn func(context.Context) error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	err := fn(actx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindNavigationTimeout,
			Message: fmt.Sprintf("estatement: %s: timeout of %s exceeded", what, s.cfg.timeout),
			Err:     err,
		}
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return fmt.Errorf("estatement: %s: %w", what, err)
}

func (s *session) launch(ctx context.Context) error {
	dir, err := ensureDir(s.cfg.dir)
	if err != nil {
		return err
	}
	s.dir = dir

	opts := LaunchOptions{
		Headless:   s.cfg.headless,
		Timeout:    s.cfg.timeout,
		ChromePath: s.cfg.chromePath,
		NoSandbox:  s.cfg.noSandbox,
	}
	if opts.ChromePath == "" && s.cfg.autoDownload {
		path, err := resolveBrowser()
		if err != nil {
			return err
		}
		opts.ChromePath = path
	}

	return s.act(ctx, "launching browser", func(ctx context.Context) error {
		page, err := s.cfg.launcher.Launch(ctx, opts)
		if err != nil {
			return err
		}
		s.page = page
		page.OnDialog(s.handleDialog)
		return nil
	})
}

func (s *session) login(ctx context.Context) error {
	p := s.cfg.portal
	steps := []struct {
		what string
		fn   func(context.Context) error
	}{
		{"loading login page", func(ctx context.Context) error { return s.page.Navigate(ctx, p.LoginURL) }},
		{"waiting for username field", func(ctx context.Context) error { return s.page.WaitVisible(ctx, p.UsernameField) }},
		{"focusing username field", func(ctx context.Context) error { return s.page.Click(ctx, p.UsernameField) }},
		{"entering username", func(ctx context.Context) error { return s.page.Type(ctx, s.d.username) }},
		{"waiting for password field", func(ctx context.Context) error { return s.page.WaitVisible(ctx, p.PasswordField) }},
		{"focusing password field", func(ctx context.Context) error { return s.page.Click(ctx, p.PasswordField) }},
		{"entering password", func(ctx context.Context) error { return s.page.Type(ctx, s.d.password) }},
		{"waiting for login button", func(ctx context.Context) error { return s.page.WaitVisible(ctx, p.LoginButton) }},
		{"logging in", func(ctx context.Context) error { return s.page.ClickAndWaitNavigation(ctx, p.LoginButton) }},
	}
	for _, st := range steps {
		if err := s.act(ctx, st.what, st.fn); err != nil {
			return err
		}
	}

	// A dialog raised by the login response means the login was rejected.
	if err := s.err(); err != nil {
		return err
	}
	s.loggedIn = true
	return nil
}

func (s *session) retrieveAll(ctx context.Context) error {
	err := s.act(ctx, "loading e-statement page", func(ctx context.Context) error {
		return s.page.Navigate(ctx, s.cfg.portal.StatementURL)
	})
	if err != nil {
		return err
	}

	periods := WorkList(s.cfg.now(), s.cfg.maxDownloads)
	s.log.Debug("work list", "periods", len(periods))

	for _, p := range periods {
		if err := s.err(); err != nil {
			return err
		}
		a, err := s.retrieve(ctx, p)
		if err != nil {
			return err
		}
		s.artifacts = append(s.artifacts, a)
	}
	return nil
}

func (s *session) logout(ctx context.Context) error {
	return s.act(ctx, "logging out", func(ctx context.Context) error {
		found, err := s.page.ClickLink(ctx, s.cfg.portal.LogoutText)
		if err != nil {
			return err
		}
		if !found {
			return ErrLogoutLinkNotFound
		}
		return nil
	})
}
