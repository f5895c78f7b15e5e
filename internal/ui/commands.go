// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/chat"
)

// statusTTL is how long a transient status line stays up.
const statusTTL = 4 * time.Second

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// refreshThreadsCmd reloads the thread list.
func refreshThreadsCmd(ctx context.Context, ctrl *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		return threadsLoadedMsg{err: ctrl.RefreshThreads(ctx)}
	}
}

// fetchHistoryCmd loads the log of the ticket's thread.
func fetchHistoryCmd(ctx context.Context, ctrl *chat.Controller, t chat.SyncTicket) tea.Cmd {
	return func() tea.Msg {
		records, err := ctrl.FetchHistory(ctx, t)
		return historyMsg{ticket: t, records: records, err: err}
	}
}

// sendPromptCmd performs the network step of a submission.
func sendPromptCmd(ctx context.Context, ctrl *chat.Controller, s *chat.Submission) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Send(ctx, s)
		return submitDoneMsg{sub: s, res: res, err: err}
	}
}

// confirmDeleteCmd tells the backend about a local deletion.
func confirmDeleteCmd(ctx context.Context, ctrl *chat.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{threadID: id, err: ctrl.ConfirmDelete(ctx, id)}
	}
}

// loginCmd signs in.
func loginCmd(ctx context.Context, acct Account, email, password string) tea.Cmd {
	return func() tea.Msg {
		return authDoneMsg{email: email, err: acct.Login(ctx, email, password)}
	}
}

// registerCmd creates an account and signs in with it.
func registerCmd(ctx context.Context, acct Account, email, password, photoPath string) tea.Cmd {
	return func() tea.Msg {
		var photo *attach.Image
		if photoPath != "" {
			img, err := attach.Load(photoPath)
			if err != nil {
				return authDoneMsg{register: true, email: email, err: err}
			}
			photo = img
		}
		if err := acct.Register(ctx, email, password, photo); err != nil {
			return authDoneMsg{register: true, email: email, err: err}
		}
		return authDoneMsg{register: true, email: email, err: acct.Login(ctx, email, password)}
	}
}

// viewProfileCmd fetches the signed-in member.
func viewProfileCmd(ctx context.Context, acct Account) tea.Cmd {
	return func() tea.Msg {
		p, err := acct.ViewProfile(ctx)
		return profileMsg{profile: p, err: err}
	}
}

// updateProfileCmd applies a profile update.
func updateProfileCmd(ctx context.Context, acct Account, password, photoPath string) tea.Cmd {
	return func() tea.Msg {
		u := api.ProfileUpdate{Password: password}
		if photoPath != "" {
			img, err := attach.Load(photoPath)
			if err != nil {
				return profileUpdatedMsg{err: err}
			}
			u.Photo = img
		}
		photo, err := acct.UpdateProfile(ctx, u)
		return profileUpdatedMsg{photoURL: photo, err: err}
	}
}

// logoutCmd ends the session.
func logoutCmd(ctx context.Context, ctrl *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: ctrl.Logout(ctx)}
	}
}

// clearStatusCmd schedules the removal of status generation gen.
func clearStatusCmd(gen int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{gen: gen}
	})
}
