package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/estatement"
	"github.com/porticus-lab/estatement/internal/config"
	"github.com/porticus-lab/estatement/internal/history"
)

// usageError marks invalid invocations; main prints the usage text for them.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "estatement <account-no> <ibank-username> <ibank-password>",
	Short: "Download KlikBCA e-statements",
	Long: `Download the monthly e-statements of a KlikBCA account, starting from the
previous month, and convert them to text when pdftotext is available.

Arguments may also be supplied through ESTATEMENT_ACCOUNT, ESTATEMENT_USERNAME
and ESTATEMENT_PASSWORD, in the environment or in a .env file.

Examples:
  estatement 0123456789 budi1234 123456 -n 6 --dir ~/statements
  estatement 0123456789 budi1234 123456 --headless --builtin-text`,
	Version:       version,
	Args:          cobra.MaximumNArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := config.Load()
		if err != nil {
			return usageError{err}
		}
		cfg, err := resolveConfig(cmd, args, base)
		if err != nil {
			return usageError{err}
		}
		setupLogging()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return download(ctx, cfg)
	},
}

func init() {
	addDownloadFlags(rootCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every session step")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(convertCmd, historyCmd)
}

func addDownloadFlags(cmd *cobra.Command) {
	d := config.Defaults()
	f := cmd.Flags()
	f.IntP("max", "n", d.MaxDownloads, "number of statements to download, starting from the previous month")
	f.Int("timeout", int(d.Timeout/time.Millisecond), "timeout for every browser action, in milliseconds")
	f.Bool("headless", false, "run Chrome without a window")
	f.String("dir", d.Dir, "directory for statements and converted text files")
	f.String("pdftotext", d.PDFToText, "pdftotext executable, looked up in PATH")
	f.Bool("builtin-text", false, "convert statements with the built-in extractor instead of pdftotext")
	f.String("history", "", "SQLite file recording downloaded statements")
	f.String("chrome", "", "path to the Chrome or Chromium executable")
	f.Bool("no-sandbox", false, "disable the Chrome sandbox (required when running as root)")
	f.Bool("auto-download", false, "download a compatible Chromium if none is installed")
}

// resolveConfig applies positional arguments and explicitly set flags on top
// of base and validates the result.
func resolveConfig(cmd *cobra.Command, args []string, base config.Config) (config.Config, error) {
	cfg := base
	for i, dst := range []*string{&cfg.Account, &cfg.Username, &cfg.Password} {
		if i < len(args) {
			*dst = args[i]
		}
	}

	f := cmd.Flags()
	if f.Changed("max") {
		cfg.MaxDownloads, _ = f.GetInt("max")
	}
	if f.Changed("timeout") {
		ms, _ := f.GetInt("timeout")
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	if f.Changed("headless") {
		cfg.Headless, _ = f.GetBool("headless")
	}
	if f.Changed("dir") {
		cfg.Dir, _ = f.GetString("dir")
	}
	if f.Changed("pdftotext") {
		cfg.PDFToText, _ = f.GetString("pdftotext")
	}
	if f.Changed("history") {
		cfg.History, _ = f.GetString("history")
	}
	if f.Changed("chrome") {
		cfg.ChromePath, _ = f.GetString("chrome")
	}
	cfg.BuiltinText, _ = f.GetBool("builtin-text")
	cfg.NoSandbox, _ = f.GetBool("no-sandbox")
	cfg.AutoDownload, _ = f.GetBool("auto-download")

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func download(ctx context.Context, cfg config.Config) error {
	opts := []estatement.Option{
		estatement.WithMaxDownloads(cfg.MaxDownloads),
		estatement.WithTimeout(cfg.Timeout),
		estatement.WithHeadless(cfg.Headless),
		estatement.WithDir(cfg.Dir),
		estatement.WithLogger(slog.Default()),
		estatement.WithProgress(reportProgress),
	}
	if conv := selectConverter(cfg); conv != nil {
		opts = append(opts, estatement.WithConverter(conv))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, estatement.WithChromePath(cfg.ChromePath))
	}
	if cfg.NoSandbox {
		opts = append(opts, estatement.WithNoSandbox())
	}
	if cfg.AutoDownload {
		opts = append(opts, estatement.WithAutoDownload())
	}
	if cfg.History != "" {
		store, err := history.Open(cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, estatement.WithRecorder(historyRecorder{store}))
	}

	d, err := estatement.New(cfg.Account, cfg.Username, cfg.Password, opts...)
	if err != nil {
		return usageError{err}
	}

	arts, err := d.Run(ctx)
	if err != nil {
		return err
	}
	printSuccess("Downloaded %d statement(s)", len(arts))
	return nil
}

// selectConverter returns the text converter for cfg, or nil when the
// external tool cannot be found.
func selectConverter(cfg config.Config) estatement.Converter {
	if cfg.BuiltinText {
		return estatement.BuiltinConverter{}
	}
	conv, err := estatement.NewExecConverter(cfg.PDFToText)
	if err != nil {
		printWarning("Text conversion disabled: %v", err)
		return nil
	}
	return conv
}

func reportProgress(e estatement.Event) {
	switch e.Kind {
	case estatement.EventDownloading:
		printStep("Downloading eStatement %s..", e.Period)
	case estatement.EventDownloaded:
		printSuccess("Downloaded to %s", e.Path)
	case estatement.EventConverting:
		printStep("Converting %s to text..", e.Path)
	case estatement.EventConverted:
		printSuccess("Converted to %s", e.Path)
	case estatement.EventWarning:
		printWarning("%s", e.Message)
	}
}

// failureLine renders err for the operator.
func failureLine(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Error: interrupted"
	}
	return estatement.FormatFailure(err)
}

// historyRecorder stores retrieved statements in the history database.
type historyRecorder struct {
	store *history.Store
}

func (r historyRecorder) Record(ctx context.Context, rec estatement.Record) error {
	return r.store.Add(ctx, history.Entry{
		RunID:        rec.RunID,
		Account:      rec.Account,
		Month:        rec.Period.Month,
		Year:         rec.Period.Year,
		Path:         rec.Path,
		TextPath:     rec.TextPath,
		DownloadedAt: rec.DownloadedAt,
	})
}
