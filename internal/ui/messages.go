// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/chat"
	"github.com/kkamji/weasel-tui/internal/config"
	"github.com/kkamji/weasel-tui/internal/model"
)

// =============================================================================
// BACKEND RESULT MESSAGES
// =============================================================================

// threadsLoadedMsg carries the result of a thread list refresh.
type threadsLoadedMsg struct {
	err error
}

// historyMsg carries the result of a history fetch.
type historyMsg struct {
	ticket  chat.SyncTicket
	records []model.PromptRecord
	err     error
}

// submitDoneMsg carries the result of a prompt submission.
type submitDoneMsg struct {
	sub *chat.Submission
	res *api.PromptResult
	err error
}

// deleteDoneMsg reports the backend side of a thread deletion.
type deleteDoneMsg struct {
	threadID string
	err      error
}

// authDoneMsg carries the result of a login or registration.
type authDoneMsg struct {
	register bool
	email    string
	err      error
}

// profileMsg carries the signed-in member.
type profileMsg struct {
	profile *api.Profile
	err     error
}

// profileUpdatedMsg carries the result of a profile update.
type profileUpdatedMsg struct {
	photoURL string
	err      error
}

// logoutDoneMsg reports the end of a logout.
type logoutDoneMsg struct {
	err error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a changed configuration from the file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// clearStatusMsg clears the status line if it still shows generation gen.
type clearStatusMsg struct {
	gen int
}
