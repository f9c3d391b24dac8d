// Package config provides command-line configuration for estatement.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything needed for one run.
type Config struct {
	Account  string
	Username string
	Password string

	MaxDownloads int
	Timeout      time.Duration
	Headless     bool
	Dir          string
	PDFToText    string
	BuiltinText  bool
	History      string

	ChromePath   string
	NoSandbox    bool
	AutoDownload bool
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		MaxDownloads: 24,
		Timeout:      10 * time.Second,
		Dir:          ".",
		PDFToText:    "pdftotext",
	}
}

// Load reads a .env file from the working directory if present and returns
// the defaults overridden by ESTATEMENT_* environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a configuration from the defaults and the variables
// returned by getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Account, "ESTATEMENT_ACCOUNT")
	setString(&cfg.Username, "ESTATEMENT_USERNAME")
	setString(&cfg.Password, "ESTATEMENT_PASSWORD")
	setString(&cfg.Dir, "ESTATEMENT_DIR")
	setString(&cfg.PDFToText, "ESTATEMENT_PDFTOTEXT")
	setString(&cfg.History, "ESTATEMENT_HISTORY")
	setString(&cfg.ChromePath, "ESTATEMENT_CHROME")

	if v := getenv("ESTATEMENT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("ESTATEMENT_MAX: %w", err)
		}
		cfg.MaxDownloads = n
	}
	if v := getenv("ESTATEMENT_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("ESTATEMENT_TIMEOUT_MS: %w", err)
		}
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	if v := getenv("ESTATEMENT_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("ESTATEMENT_HEADLESS: %w", err)
		}
		cfg.Headless = b
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable session.
func (c *Config) Validate() error {
	switch {
	case c.Account == "":
		return fmt.Errorf("account number is required")
	case c.Username == "":
		return fmt.Errorf("username is required")
	case c.Password == "":
		return fmt.Errorf("password is required")
	case c.MaxDownloads <= 0:
		return fmt.Errorf("number of statements must be greater than 0")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}
