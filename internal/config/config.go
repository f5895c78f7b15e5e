// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for weasel.
//
// Configuration is read from a TOML file, with sensible defaults, .env and
// environment variable overrides, and validation.
//
// Configuration sources (later wins):
//   - Built-in defaults
//   - ~/.weasel/config.toml (or $WEASEL_HOME/config.toml)
//   - .env files (~/.weasel/.env, then ./.env), never overriding the real environment
//   - WEASEL_* environment variables
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete weasel configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend connection
	Server ServerConfig `toml:"server"`

	// Login session persistence
	Auth AuthConfig `toml:"auth"`

	// Terminal UI
	UI UIConfig `toml:"ui"`

	// Logging
	Log LogConfig `toml:"log"`
}

// ServerConfig describes the Weasel backend.
type ServerConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8080/v1
	BaseURL string `toml:"base_url"`
	// ImageBaseURL is prepended to bare image keys returned by the backend
	ImageBaseURL string `toml:"image_base_url"`
	// TimeoutSecs bounds every request, including the time to produce an answer
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerSecond limits outgoing requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// AuthConfig controls where the login session is kept.
type AuthConfig struct {
	// CookieDB is the SQLite file holding session cookies (empty = ~/.weasel/session.db)
	CookieDB string `toml:"cookie_db"`
	// LastEmail pre-fills the login form
	LastEmail string `toml:"last_email"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme"`
	// RevealFPS is the answer reveal cadence in characters per second
	RevealFPS int `toml:"reveal_fps"`
	// Markdown renders bot answers as markdown once fully revealed
	Markdown bool `toml:"markdown"`
	// HistoryWidth is the width of the thread panel in columns
	HistoryWidth int `toml:"history_width"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level"`
	// File is the log file (empty = ~/.weasel/weasel.log)
	File string `toml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Server: ServerConfig{
			BaseURL:           "http://localhost:8080/v1",
			ImageBaseURL:      "https://weasel-images.s3.amazonaws.com/",
			TimeoutSecs:       120,
			RequestsPerSecond: 8,
		},

		UI: UIConfig{
			Theme:        "auto",
			RevealFPS:    60,
			Markdown:     true,
			HistoryWidth: 28,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the weasel configuration directory. WEASEL_HOME
// overrides the default ~/.weasel.
func ConfigDir() (string, error) {
	if dir := os.Getenv("WEASEL_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".weasel"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// CookieDBPath resolves the session database path.
func (c *Config) CookieDBPath() (string, error) {
	if c.Auth.CookieDB != "" {
		return c.Auth.CookieDB, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.db"), nil
}

// LogFilePath resolves the log file path.
func (c *Config) LogFilePath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "weasel.log"), nil
}

// ensureSecurePermissions tightens config file permissions to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location. A missing file is
// not an error: defaults are used.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path with .env and environment
// overrides, defaults and validation applied. A missing file yields the
// defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}

	if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// SetDefaults fills in zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	c.Server.BaseURL = strings.TrimSuffix(c.Server.BaseURL, "/")
	if c.Server.ImageBaseURL == "" {
		c.Server.ImageBaseURL = d.Server.ImageBaseURL
	}
	if !strings.HasSuffix(c.Server.ImageBaseURL, "/") {
		c.Server.ImageBaseURL += "/"
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = d.Server.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.RevealFPS == 0 {
		c.UI.RevealFPS = d.UI.RevealFPS
	}
	if c.UI.HistoryWidth == 0 {
		c.UI.HistoryWidth = d.UI.HistoryWidth
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# weasel configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateHTTPURL(c.Server.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "server.base_url", Message: err.Error()})
	}
	if err := validateHTTPURL(c.Server.ImageBaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "server.image_base_url", Message: err.Error()})
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 3600, got %d", c.Server.TimeoutSecs),
		})
	}
	if c.Server.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.requests_per_second",
			Message: "must not be negative",
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.RevealFPS < 1 || c.UI.RevealFPS > 240 {
		errs = append(errs, ValidationError{
			Field:   "ui.reveal_fps",
			Message: fmt.Sprintf("must be between 1 and 240, got %d", c.UI.RevealFPS),
		})
	}
	if c.UI.HistoryWidth < 12 || c.UI.HistoryWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.history_width",
			Message: fmt.Sprintf("must be between 12 and 80, got %d", c.UI.HistoryWidth),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - WEASEL_BASE_URL: overrides server.base_url
//   - WEASEL_IMAGE_BASE_URL: overrides server.image_base_url
//   - WEASEL_TIMEOUT: overrides server.timeout_secs
//   - WEASEL_THEME: overrides ui.theme
//   - WEASEL_REVEAL_FPS: overrides ui.reveal_fps
//   - WEASEL_NO_MARKDOWN: set to "1" or "true" to disable markdown rendering
//   - WEASEL_COOKIE_DB: overrides auth.cookie_db
//   - WEASEL_LOG_LEVEL: overrides log.level
//   - WEASEL_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WEASEL_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("WEASEL_IMAGE_BASE_URL"); v != "" {
		c.Server.ImageBaseURL = v
	}
	if v := os.Getenv("WEASEL_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = n
		}
	}
	if v := os.Getenv("WEASEL_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("WEASEL_REVEAL_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UI.RevealFPS = n
		}
	}
	if v := os.Getenv("WEASEL_NO_MARKDOWN"); v != "" {
		c.UI.Markdown = !(v == "1" || strings.ToLower(v) == "true")
	}
	if v := os.Getenv("WEASEL_COOKIE_DB"); v != "" {
		c.Auth.CookieDB = v
	}
	if v := os.Getenv("WEASEL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("WEASEL_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}
