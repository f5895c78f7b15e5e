// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger shared by weasel.
//
// The TUI owns the terminal, so logs go to a file by default. Components
// take a *log.Logger; the package-level logger is only the default for
// code that was not handed one.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	logger = log.NewWithOptions(io.Discard, log.Options{})
	closer io.Closer
)

// Options controls where and how much is logged.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// File is the log file path. Empty means stderr.
	File string

	// Prefix is shown before every message.
	Prefix string
}

// Configure replaces the package logger according to opts.
// The WEASEL_LOG_LEVEL environment variable is used when opts.Level is empty.
func Configure(opts Options) error {
	level := opts.Level
	if level == "" {
		level = os.Getenv("WEASEL_LOG_LEVEL")
	}

	var out io.Writer = os.Stderr
	var c io.Closer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		out, c = f, f
	}

	l := log.NewWithOptions(out, log.Options{
		Level:           ParseLevel(level),
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})

	mu.Lock()
	old := closer
	logger, closer = l, c
	mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// ParseLevel converts a level name to a log level. Unknown names mean info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Default returns the package logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a child of the package logger with a component prefix.
func With(component string) *log.Logger {
	return Default().WithPrefix(component)
}

// Close closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	logger = log.NewWithOptions(io.Discard, log.Options{})
	return err
}

// Discard returns a logger that drops everything, for tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
