// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
)

// ValidationError is input rejected before any store mutation or request.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	// ErrEmptyPrompt rejects a submission with neither text nor image.
	ErrEmptyPrompt error = &ValidationError{Reason: "enter a message or attach an image"}

	// ErrThreadLoading rejects a submission while the selected thread's
	// history has not arrived yet.
	ErrThreadLoading error = &ValidationError{Reason: "wait for the thread to finish loading"}

	// ErrSubmissionInFlight rejects a submission while another is pending.
	ErrSubmissionInFlight = errors.New("a prompt is already being answered")

	// ErrStaleSync reports a history result for a thread that is no longer
	// selected, or superseded by a newer fetch. The stores were not touched.
	ErrStaleSync = errors.New("history result is stale")
)

// IsAuthExpired reports whether err means the session is gone and the user
// must sign in again. Every caller uses this one predicate.
func IsAuthExpired(err error) bool {
	return api.IsAuthError(err)
}

// IsValidation reports whether err is a client-side input rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, target := range []error{
		api.ErrMissingCredentials,
		api.ErrInvalidEmail,
		api.ErrNothingToUpdate,
		attach.ErrNotImage,
		attach.ErrTooLarge,
		attach.ErrEmpty,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
