// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxErrorWidth caps the terminal width of a message taken from an error body.
const maxErrorWidth = 200

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrUnauthorized indicates the session is missing or expired (HTTP 401).
	ErrUnauthorized = errors.New("not logged in or session expired")

	// ErrBadCredentials indicates the backend rejected the email/password pair.
	ErrBadCredentials = errors.New("wrong email or password")

	// ErrMissingCredentials indicates an empty email or password.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrNothingToUpdate indicates a profile update with no changes.
	ErrNothingToUpdate = errors.New("nothing to update: provide a new password or photo")

	// ErrEmptyID indicates an operation on a thread without an ID.
	ErrEmptyID = errors.New("thread ID is required")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Error is a non-2xx response from the backend.
type Error struct {
	Op      string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, msg)
}

// Unwrap lets a 401 match ErrUnauthorized.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// NetworkError is a request that never got a response.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ResultError is a login or registration the backend answered with a
// failure result code.
type ResultError struct {
	Op      string
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ResultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed (code %d)", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsAuthError reports whether err means the user must sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNetworkError reports whether err is a transport failure or non-2xx status.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	var ae *Error
	return errors.As(err, &ne) || errors.As(err, &ae)
}

// errorMessage extracts a human message from an error body.
func errorMessage(body []byte) string {
	var parsed struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := decodeJSON(body, &parsed); err == nil {
		for _, m := range []string{parsed.Msg, parsed.Message, parsed.Error} {
			if m != "" {
				return m
			}
		}
	}
	return runewidth.Truncate(strings.TrimSpace(string(body)), maxErrorWidth, "...")
}
