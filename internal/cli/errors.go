// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/chat"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid input
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing, expired or rejected login
	ExitAuthError = 4
	// ExitNetworkError indicates a transport failure or backend error status
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError wraps a failure to load or save the configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AuthRequiredError reports that the command needs a valid login.
type AuthRequiredError struct {
	Err error
}

func (e *AuthRequiredError) Error() string {
	if e.Err == nil {
		return "not logged in; run `weasel login`"
	}
	return e.Err.Error() + "; run `weasel login`"
}

func (e *AuthRequiredError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HANDLING
// =============================================================================

// classify adds the login hint to auth failures. Other errors are returned
// unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var authErr *AuthRequiredError
	if errors.As(err, &authErr) {
		return err
	}
	if chat.IsAuthExpired(err) {
		return &AuthRequiredError{Err: err}
	}
	return err
}

// ExitCode determines the process exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var authErr *AuthRequiredError
	var cfgErr *ConfigError
	switch {
	case errors.As(err, &authErr), chat.IsAuthExpired(err), errors.Is(err, api.ErrBadCredentials):
		return ExitAuthError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case chat.IsValidation(err):
		return ExitUsageError
	case api.IsNetworkError(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err to w in the CLI error style.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
}
