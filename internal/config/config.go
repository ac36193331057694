// Package config loads pagewait settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/v0xg/pagewait/internal/browser"
)

// Prefix for environment variables, e.g. PAGEWAIT_DRIVER
const Prefix = "pagewait"

// Config holds the settings shared by every command
type Config struct {
	Driver        string        `envconfig:"DRIVER" default:"rod"`
	Headless      bool          `envconfig:"HEADLESS" default:"true"`
	Width         int           `envconfig:"WIDTH" default:"1280"`
	Height        int           `envconfig:"HEIGHT" default:"720"`
	ProfileDir    string        `envconfig:"PROFILE"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"30s"`
	ScriptTimeout time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"2s"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"50ms"`
	ArtifactDir   string        `envconfig:"ARTIFACTS"`
	Verbose       bool          `envconfig:"VERBOSE"`
}

// Load reads .env files (missing files are ignored) and then the environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		// Load .env file if present (silently ignore if not found)
		_ = godotenv.Load()
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return c, nil
}

// Validate rejects unknown drivers and non-positive sizes or timeouts
func (c Config) Validate() error {
	var errs []error
	if !browser.Supported(c.Driver) {
		errs = append(errs, fmt.Errorf("unknown driver %q (supported: %v)", c.Driver, browser.Drivers))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.ScriptTimeout <= 0 {
		errs = append(errs, errors.New("script timeout must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	return errors.Join(errs...)
}

// BrowserOptions maps the config onto browser launch options
func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Driver:     c.Driver,
		Width:      c.Width,
		Height:     c.Height,
		Headless:   c.Headless,
		ProfileDir: c.ProfileDir,
	}
}
