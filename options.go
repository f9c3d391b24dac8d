package estatement

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// config holds internal configuration for a Downloader.
type config struct {
	timeout      time.Duration
	headless     bool
	dir          string
	maxDownloads int
	pollInterval time.Duration

	chromePath   string
	noSandbox    bool
	autoDownload bool

	converter Converter
	recorder  Recorder
	launcher  Launcher
	portal    Portal

	logger   *slog.Logger
	progress func(Event)
	now      func() time.Time
}

func defaultConfig() config {
	return config{
		timeout:      10 * time.Second,
		dir:          ".",
		maxDownloads: 24,
		pollInterval: DefaultPollInterval,
		launcher:     ChromeLauncher{},
		portal:       DefaultPortal(),
		logger:       slog.Default(),
		progress:     func(Event) {},
		now:          time.Now,
	}
}

// Option configures a [Downloader].
type Option func(*config)

// WithTimeout sets the limit applied to every browser action and to the
// wait for a download to complete. Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHeadless runs the browser without a visible window.
func WithHeadless(headless bool) Option {
	return func(c *config) {
		c.headless = headless
	}
}

// WithDir sets the directory statements are moved into. A leading "~"
// expands to the current user's home directory. Defaults to the working
// directory.
func WithDir(dir string) Option {
	return func(c *config) {
		c.dir = dir
	}
}

// WithMaxDownloads caps the number of statements fetched. Defaults to 24,
// which is also the furthest the portal is asked to look back.
func WithMaxDownloads(n int) Option {
	return func(c *config) {
		c.maxDownloads = n
	}
}

// WithPollInterval sets how often the staging directory is checked for a
// completed download. Defaults to [DefaultPollInterval].
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithAutoDownload fetches a compatible Chromium build when no Chrome path
// is configured.
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithConverter converts every retrieved statement to text with conv.
// A nil converter disables conversion.
func WithConverter(conv Converter) Option {
	return func(c *config) {
		c.converter = conv
	}
}

// WithRecorder records every retrieved statement with r.
func WithRecorder(r Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithLauncher replaces the Chrome launcher.
func WithLauncher(l Launcher) Option {
	return func(c *config) {
		c.launcher = l
	}
}

// WithPortal overrides the portal endpoints and selectors.
func WithPortal(p Portal) Option {
	return func(c *config) {
		c.portal = p
	}
}

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithProgress delivers operator-facing progress events to fn.
func WithProgress(fn func(Event)) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithClock sets the source of the current date used to build the work list.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

func (c *config) validate() error {
	switch {
	case c.maxDownloads <= 0:
		return configError("max downloads must be greater than zero")
	case c.timeout <= 0:
		return configError("timeout must be greater than zero")
	case c.launcher == nil:
		return configError("no browser launcher")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.progress == nil {
		c.progress = func(Event) {}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	return nil
}

// ExpandHome replaces a leading "~" in path with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}
