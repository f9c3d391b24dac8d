package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/estatement"
	"github.com/porticus-lab/estatement/internal/config"
	"github.com/porticus-lab/estatement/internal/history"
)

func parseDownloadFlags(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addDownloadFlags(cmd)
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestResolveConfig_ArgsAndFlags(t *testing.T) {
	cmd := parseDownloadFlags(t, "-n", "6", "--timeout", "2500", "--headless", "--dir", "/tmp/s", "--builtin-text")

	cfg, err := resolveConfig(cmd, []string{"0123456789", "budi", "rahasia"}, config.Defaults())
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Account != "0123456789" || cfg.Username != "budi" || cfg.Password != "rahasia" {
		t.Errorf("credentials = %q/%q/%q", cfg.Account, cfg.Username, cfg.Password)
	}
	if cfg.MaxDownloads != 6 {
		t.Errorf("MaxDownloads = %d, want 6", cfg.MaxDownloads)
	}
	if cfg.Timeout != 2500*time.Millisecond {
		t.Errorf("Timeout = %s", cfg.Timeout)
	}
	if !cfg.Headless || !cfg.BuiltinText {
		t.Errorf("boolean flags not applied: %+v", cfg)
	}
	if cfg.Dir != "/tmp/s" {
		t.Errorf("Dir = %q", cfg.Dir)
	}
}

func TestResolveConfig_EnvFallback(t *testing.T) {
	base := config.Defaults()
	base.Account, base.Username, base.Password = "111", "env-user", "env-pass"
	base.MaxDownloads = 3

	cfg, err := resolveConfig(parseDownloadFlags(t), []string{"222"}, base)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Account != "222" {
		t.Errorf("argument did not override environment: %q", cfg.Account)
	}
	if cfg.Username != "env-user" || cfg.Password != "env-pass" {
		t.Errorf("environment credentials lost: %+v", cfg)
	}
	if cfg.MaxDownloads != 3 {
		t.Errorf("unset flag overrode environment: MaxDownloads = %d", cfg.MaxDownloads)
	}
}

func TestResolveConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		args  []string
	}{
		{"missing password", nil, []string{"1", "u"}},
		{"zero count", []string{"-n", "0"}, []string{"1", "u", "p"}},
		{"negative timeout", []string{"--timeout=-5"}, []string{"1", "u", "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolveConfig(parseDownloadFlags(t, tt.flags...), tt.args, config.Defaults()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSelectConverter(t *testing.T) {
	cfg := config.Defaults()
	cfg.BuiltinText = true
	if _, ok := selectConverter(cfg).(estatement.BuiltinConverter); !ok {
		t.Error("builtin converter not selected")
	}

	cfg = config.Defaults()
	cfg.PDFToText = "definitely-not-a-real-pdftotext"
	if conv := selectConverter(cfg); conv != nil {
		t.Errorf("expected no converter, got %T", conv)
	}
}

func TestHistoryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := historyRecorder{store}
	err = rec.Record(context.Background(), estatement.Record{
		RunID:        "run-1",
		Account:      "0123456789",
		Period:       estatement.Period{Month: 2, Year: 2024},
		Path:         "/s/Feb.pdf",
		DownloadedAt: time.Now(),
	})
	store.Close()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"history", "--db", path})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "0123456789") || !strings.Contains(out.String(), "2/2024") {
		t.Errorf("history output missing entry:\n%s", out.String())
	}
}

func TestConvertCommand_MissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"convert", filepath.Join(t.TempDir(), "missing.pdf")})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestConvertCommand_MalformedPDF(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.pdf")
	broken := "%PDF-1.4\ntrailer\n<< /Root << /Pages << /Kids [ << /Type /Page /Contents 5 >> ] /Count 1 >> >> >>\nstartxref\n9999\n%%EOF\n"
	if err := os.WriteFile(src, []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{"convert", src, filepath.Join(dir, "missing.pdf")})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for malformed file")
	}
	if !strings.Contains(err.Error(), "2 of 2") {
		t.Errorf("error = %q, want both files counted as failed", err)
	}
}

func TestFailureLine(t *testing.T) {
	err := &estatement.Error{Kind: estatement.KindDownloadTimeout, Message: "timeout waiting\n to download"}
	if got := failureLine(err); got != "Error (DownloadTimeout): timeout waiting to download" {
		t.Errorf("failureLine = %q", got)
	}
	if got := failureLine(context.Canceled); got != "Error: interrupted" {
		t.Errorf("failureLine(canceled) = %q", got)
	}
	if got := failureLine(errors.New("boom")); got != "Error: boom" {
		t.Errorf("failureLine = %q", got)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorRed, "test"); result != "test" {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorRed, "test"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPrintError(t *testing.T) {
	oldColor, oldOut := noColor, stderr
	defer func() { noColor, stderr = oldColor, oldOut }()

	var buf bytes.Buffer
	noColor, stderr = true, &buf
	printError("%s", "Error: boom")
	if got := buf.String(); got != "✗ Error: boom\n" {
		t.Errorf("printError wrote %q", got)
	}
}

func TestMain(m *testing.M) {
	// Keep a developer's .env out of the tests.
	os.Chdir(os.TempDir())
	os.Exit(m.Run())
}
