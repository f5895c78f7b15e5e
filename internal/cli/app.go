// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/chat"
	"github.com/kkamji/weasel-tui/internal/config"
	"github.com/kkamji/weasel-tui/internal/logging"
	"github.com/kkamji/weasel-tui/internal/storage"
	"github.com/kkamji/weasel-tui/internal/store"
)

// rateBurst is the request burst allowed above server.requests_per_second.
const rateBurst = 4

// =============================================================================
// APP WIRING
// =============================================================================

// app is the wiring shared by every command: config, logging, the
// persistent cookie jar, the REST client and the chat controller.
type app struct {
	cfg        *config.Config
	configPath string
	jar        *storage.CookieJar
	client     *api.Client
	ctrl       *chat.Controller
	logger     *log.Logger
}

// open loads the configuration and builds the app.
func (o *rootOptions) open() (*app, error) {
	path := o.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		path = p
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if o.baseURL != "" {
		cfg.Server.BaseURL = o.baseURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}

	logFile, err := cfg.LogFilePath()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := logging.Configure(logging.Options{Level: cfg.Log.Level, File: logFile}); err != nil {
		return nil, &ConfigError{Err: err}
	}
	logger := logging.With("cli")

	dbPath, err := cfg.CookieDBPath()
	if err != nil {
		logging.Close()
		return nil, &ConfigError{Err: err}
	}
	jar, err := storage.OpenCookieJar(dbPath)
	if err != nil {
		logging.Close()
		return nil, err
	}

	client := api.NewClient(cfg.Server.BaseURL).
		WithJar(jar).
		WithImageBaseURL(cfg.Server.ImageBaseURL).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.Server.RequestsPerSecond, rateBurst)

	ctrl := chat.NewController(client, store.NewSessionStore(), store.NewMessageStore()).
		WithSessionReset(jar.Clear)

	logger.Debug("started", "version", Version, "base_url", cfg.Server.BaseURL, "config", path)
	return &app{
		cfg:        cfg,
		configPath: path,
		jar:        jar,
		client:     client,
		ctrl:       ctrl,
		logger:     logger,
	}, nil
}

// Close releases the cookie database and the log file.
func (a *app) Close() {
	if err := a.jar.Close(); err != nil {
		a.logger.Warn("closing cookie jar", "err", err)
	}
	logging.Close()
}

// withApp opens the app and runs fn. An expired session is forgotten and
// reported with the login hint.
func withApp(opts *rootOptions, fn func(a *app) error) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(a)
	if err != nil {
		a.ctrl.HandleError(err)
	}
	return classify(err)
}

// rememberEmail stores the last signed-in email in the config file. Only
// the file contents are rewritten; flag and environment overrides are not
// persisted.
func (a *app) rememberEmail(email string) {
	cfg := config.Default()
	if _, err := os.Stat(a.configPath); err == nil {
		if err := config.LoadTOML(cfg, a.configPath); err != nil {
			a.logger.Warn("not saving last email", "err", err)
			return
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("not saving last email", "err", err)
		return
	}
	if cfg.Auth.LastEmail == email {
		return
	}
	cfg.Auth.LastEmail = email
	if err := config.SaveTOML(cfg, a.configPath); err != nil {
		a.logger.Warn("saving last email", "err", err)
		return
	}
	a.cfg.Auth.LastEmail = email
}
