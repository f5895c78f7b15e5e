// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/chat"
	"github.com/kkamji/weasel-tui/internal/reveal"
	"github.com/kkamji/weasel-tui/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case reveal.TickMsg:
		cmd := reveal.Advance(msg)
		m.refreshConversation()
		return m, cmd

	case reveal.DoneMsg:
		m.ctrl.Reveals().Release(msg.Reveal)
		m.refreshConversation()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case threadsLoadedMsg:
		m.loading = false
		m.syncCursor()
		m.refreshConversation()
		return m, m.handleError(msg.err)

	case historyMsg:
		err := m.ctrl.ApplyHistory(msg.ticket, msg.records, msg.err)
		if errors.Is(err, chat.ErrStaleSync) {
			return m, nil
		}
		m.loading = false
		m.refreshConversation()
		return m, m.handleError(err)

	case submitDoneMsg:
		r, err := m.ctrl.CompleteSubmit(msg.sub, msg.res, msg.err)
		m.syncCursor()
		m.refreshConversation()
		if err != nil {
			return m, m.handleError(err)
		}
		if r != nil {
			return m, reveal.TickCmd(r, m.revealInterval)
		}
		return m, nil

	case deleteDoneMsg:
		if msg.err != nil {
			if m.ctrl.HandleError(msg.err) {
				m.toLogin("Session expired. Please sign in again.")
				return m, nil
			}
			return m, m.setStatus("Server could not delete the thread: "+msg.err.Error(), statusError)
		}
		return m, m.setStatus("Thread deleted", statusSuccess)

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case profileMsg:
		m.profileBusy = false
		if msg.err != nil {
			return m, m.handleProfileError(msg.err)
		}
		m.profile = msg.profile
		return m, nil

	case profileUpdatedMsg:
		m.profileBusy = false
		if msg.err != nil {
			return m, m.handleProfileError(msg.err)
		}
		for i := range m.profileInputs {
			m.profileInputs[i].Reset()
		}
		if m.profile != nil && msg.photoURL != "" {
			m.profile.PhotoURL = msg.photoURL
		}
		m.profileErr = ""
		return m, m.setStatus("Profile updated", statusSuccess)

	case logoutDoneMsg:
		m.loading = false
		m.toLogin("Signed out.")
		if msg.err != nil {
			m.authErr = "Signed out locally. Server logout failed: " + msg.err.Error()
		}
		return m, nil

	case ConfigReloadedMsg:
		return m, m.applyConfig(msg)

	case clearStatusMsg:
		if msg.gen == m.statusGen {
			m.status = ""
			m.statusKind = statusInfo
		}
		return m, nil
	}

	return m, m.forward(msg)
}

// forward passes unhandled messages (cursor blinks, directory listings) to
// the active components.
func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.overlay == OverlayFilePicker {
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	}

	switch m.screen {
	case ScreenLogin:
		for i := range m.loginInputs {
			m.loginInputs[i], cmd = m.loginInputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	case ScreenChat:
		if m.overlay == OverlayProfile {
			for i := range m.profileInputs {
				m.profileInputs[i], cmd = m.profileInputs[i].Update(msg)
				cmds = append(cmds, cmd)
			}
		}
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// busy reports whether a spinner should be shown.
func (m *Model) busy() bool {
	return m.loading || m.authBusy || m.profileBusy || (m.ctrl != nil && m.ctrl.Submitting())
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}
	if m.screen == ScreenLogin {
		return m.updateLogin(msg)
	}

	switch m.overlay {
	case OverlayError:
		m.overlay = OverlayNone
		return m, nil
	case OverlayHelp:
		if key.Matches(msg, m.keys.Help) || msg.Type == tea.KeyEsc {
			m.overlay = OverlayNone
		}
		return m, nil
	case OverlayConfirmDelete:
		return m.updateConfirmDelete(msg)
	case OverlayProfile:
		return m.updateProfile(msg)
	case OverlayFilePicker:
		return m.updateFilePicker(msg)
	}

	// Global chat keys
	switch {
	case msg.Type == tea.KeyF1 || (m.focus == FocusHistory && key.Matches(msg, m.keys.Help)):
		m.overlay = OverlayHelp
		return m, nil
	case key.Matches(msg, m.keys.Skip):
		if m.ctrl.Reveals().SkipActive() {
			m.refreshConversation()
		}
		return m, nil
	case key.Matches(msg, m.keys.SwitchFocus):
		return m, m.toggleFocus()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastAnswer()
	case key.Matches(msg, m.keys.Profile):
		return m, m.openProfile()
	case key.Matches(msg, m.keys.Logout):
		m.loading = true
		return m, tea.Batch(logoutCmd(m.ctx, m.ctrl), m.spinner.Tick)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil
	}

	if m.focus == FocusHistory {
		return m.updateHistory(msg)
	}
	return m.updatePrompt(msg)
}

// updateHistory handles keys while the history panel has focus.
func (m *Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	threads := m.ctrl.Threads().List()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.historyCursor < len(threads)-1 {
			m.historyCursor++
		}
	case key.Matches(msg, m.keys.Open):
		if m.historyCursor < len(threads) {
			return m, m.selectThread(threads[m.historyCursor].ID)
		}
	case key.Matches(msg, m.keys.Delete):
		if m.historyCursor < len(threads) {
			m.pendingDelete = threads[m.historyCursor].ID
			m.overlay = OverlayConfirmDelete
		}
	case key.Matches(msg, m.keys.New):
		m.ctrl.NewThread()
		m.refreshConversation()
		return m, m.focusPrompt()
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, tea.Batch(refreshThreadsCmd(m.ctx, m.ctrl), m.spinner.Tick)
	}
	return m, nil
}

// updatePrompt handles keys while the prompt panel has focus.
func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()
	case key.Matches(msg, m.keys.Attach):
		m.overlay = OverlayFilePicker
		m.layout()
		return m, m.picker.Init()
	case key.Matches(msg, m.keys.Detach):
		if m.attachment != nil {
			m.attachment = nil
			m.layout()
			return m, m.setStatus("Image removed", statusInfo)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		id := m.pendingDelete
		m.pendingDelete = ""
		m.overlay = OverlayNone
		m.ctrl.DeleteThread(id)
		m.syncCursor()
		m.refreshConversation()
		return m, confirmDeleteCmd(m.ctx, m.ctrl, id)
	case "n", "esc", "q":
		m.pendingDelete = ""
		m.overlay = OverlayNone
	}
	return m, nil
}

func (m *Model) updateFilePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.overlay = OverlayNone
		m.layout()
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.overlay = OverlayNone
		img, err := attach.Load(path)
		if err != nil {
			m.layout()
			return m, m.setStatus(err.Error(), statusError)
		}
		m.attachment = img
		m.layout()
		return m, tea.Batch(cmd, m.setStatus("Attached "+img.Name, statusInfo))
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		return m, tea.Batch(cmd, m.setStatus(path+" is not an image", statusError))
	}
	return m, cmd
}

// =============================================================================
// LOGIN SCREEN
// =============================================================================

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		return m, m.focusLoginField(m.loginField + 1)
	case "shift+tab", "up":
		return m, m.focusLoginField(m.loginField - 1)
	case "ctrl+r":
		m.registering = !m.registering
		m.authErr = ""
		return m, m.focusLoginField(fieldEmail)
	case "enter":
		email := strings.TrimSpace(m.loginInputs[fieldEmail].Value())
		password := m.loginInputs[fieldPassword].Value()
		if err := api.ValidateCredentials(email, password); err != nil {
			m.authErr = err.Error()
			return m, nil
		}
		m.authBusy = true
		m.authErr = ""
		if m.registering {
			photo := strings.TrimSpace(m.loginInputs[fieldPhoto].Value())
			return m, tea.Batch(registerCmd(m.ctx, m.account, email, password, photo), m.spinner.Tick)
		}
		return m, tea.Batch(loginCmd(m.ctx, m.account, email, password), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginField], cmd = m.loginInputs[m.loginField].Update(msg)
	return m, cmd
}

// focusLoginField moves focus to field i, wrapping around the visible fields.
func (m *Model) focusLoginField(i int) tea.Cmd {
	n := 2
	if m.registering {
		n = 3
	}
	i = (i%n + n) % n
	m.loginField = i
	for j := range m.loginInputs {
		m.loginInputs[j].Blur()
	}
	return m.loginInputs[i].Focus()
}

func (m *Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, api.ErrBadCredentials):
			m.authErr = "Wrong email or password."
		case api.IsNetworkError(msg.err):
			m.authErr = "Could not reach the server: " + msg.err.Error()
		default:
			m.authErr = msg.err.Error()
		}
		return m, nil
	}

	if m.onLogin != nil {
		m.onLogin(msg.email)
	}
	m.loginInputs[fieldPassword].Reset()
	m.loginInputs[fieldPhoto].Reset()
	m.registering = false
	m.authErr = ""
	return m, m.enterChat()
}

// enterChat switches to the chat screen and loads the thread list.
func (m *Model) enterChat() tea.Cmd {
	m.screen = ScreenChat
	m.overlay = OverlayNone
	m.loading = true
	m.layout()
	m.refreshConversation()
	return tea.Batch(refreshThreadsCmd(m.ctx, m.ctrl), m.focusPrompt(), m.spinner.Tick, textarea.Blink)
}

// toLogin returns to the login screen with a notice.
func (m *Model) toLogin(notice string) {
	m.screen = ScreenLogin
	m.overlay = OverlayNone
	m.loading = false
	m.profile = nil
	m.attachment = nil
	m.historyCursor = 0
	m.prompt.Reset()
	m.authErr = notice
	m.loginInputs[fieldPassword].Reset()
	m.focusLoginField(fieldPassword)
	m.refreshConversation()
}

// =============================================================================
// PROFILE OVERLAY
// =============================================================================

func (m *Model) openProfile() tea.Cmd {
	m.overlay = OverlayProfile
	m.profile = nil
	m.profileErr = ""
	m.profileBusy = true
	m.profileField = fieldNewPassword
	m.prompt.Blur()
	return tea.Batch(viewProfileCmd(m.ctx, m.account), m.profileInputs[fieldNewPassword].Focus(), m.spinner.Tick)
}

func (m *Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = OverlayNone
		for i := range m.profileInputs {
			m.profileInputs[i].Blur()
		}
		return m, m.restoreFocus()
	case "tab", "shift+tab", "up", "down":
		m.profileInputs[m.profileField].Blur()
		m.profileField = (m.profileField + 1) % len(m.profileInputs)
		return m, m.profileInputs[m.profileField].Focus()
	case "enter":
		if m.profileBusy {
			return m, nil
		}
		password := m.profileInputs[fieldNewPassword].Value()
		photo := strings.TrimSpace(m.profileInputs[fieldNewPhoto].Value())
		if password == "" && photo == "" {
			m.profileErr = api.ErrNothingToUpdate.Error()
			return m, nil
		}
		m.profileBusy = true
		m.profileErr = ""
		return m, tea.Batch(updateProfileCmd(m.ctx, m.account, password, photo), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.profileInputs[m.profileField], cmd = m.profileInputs[m.profileField].Update(msg)
	return m, cmd
}

func (m *Model) handleProfileError(err error) tea.Cmd {
	if m.ctrl.HandleError(err) {
		m.toLogin("Session expired. Please sign in again.")
		return nil
	}
	m.profileErr = err.Error()
	return nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// selectThread starts a history sync for id.
func (m *Model) selectThread(id string) tea.Cmd {
	ticket := m.ctrl.SelectThread(id)
	m.loading = true
	m.follow = true
	m.refreshConversation()
	return tea.Batch(fetchHistoryCmd(m.ctx, m.ctrl, ticket), m.spinner.Tick)
}

// submit validates the composed prompt and dispatches it.
func (m *Model) submit() tea.Cmd {
	draft := chat.Draft{Text: m.prompt.Value(), Image: m.attachment}
	sub, err := m.ctrl.BeginSubmit(draft)
	if err != nil {
		if errors.Is(err, chat.ErrSubmissionInFlight) || errors.Is(err, chat.ErrThreadLoading) {
			return m.setStatus(err.Error(), statusError)
		}
		return m.handleError(err)
	}

	m.prompt.Reset()
	m.attachment = nil
	m.follow = true
	m.layout()
	m.refreshConversation()
	return tea.Batch(sendPromptCmd(m.ctx, m.ctrl, sub), m.spinner.Tick)
}

// copyLastAnswer puts the newest bot answer on the clipboard.
func (m *Model) copyLastAnswer() tea.Cmd {
	msgs := m.ctrl.Messages().List()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsBot() && msgs[i].Content != "" {
			if err := clipboard.WriteAll(msgs[i].Content); err != nil {
				return m.setStatus("Clipboard unavailable: "+err.Error(), statusError)
			}
			return m.setStatus("Answer copied", statusSuccess)
		}
	}
	return m.setStatus("Nothing to copy", statusError)
}

// handleError applies the error policy: auth expiry returns to the login
// screen; anything else is shown in the error box.
func (m *Model) handleError(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if m.ctrl.HandleError(err) {
		m.toLogin("Session expired. Please sign in again.")
		return nil
	}

	m.errTitle = "Request failed"
	if chat.IsValidation(err) {
		m.errTitle = "Cannot send"
	}
	m.errText = err.Error()
	m.overlay = OverlayError
	m.logger.Debug("showing error", "err", err)
	return nil
}

// setStatus shows a transient status line.
func (m *Model) setStatus(text string, kind statusKind) tea.Cmd {
	m.statusGen++
	m.status = text
	m.statusKind = kind
	return clearStatusCmd(m.statusGen)
}

// applyConfig installs a reloaded configuration.
func (m *Model) applyConfig(msg ConfigReloadedMsg) tea.Cmd {
	if msg.Err != nil {
		return m.setStatus("Config reload failed: "+msg.Err.Error(), statusError)
	}
	if msg.Config == nil {
		return nil
	}

	m.cfg = msg.Config
	m.theme = styles.NewTheme(m.cfg.UI.Theme)
	m.spinner.Style = m.theme.BotLabel
	m.markdown.configure(m.theme.GlamourStyle(), m.cfg.UI.Markdown)
	m.revealInterval = reveal.FrameInterval(m.cfg.UI.RevealFPS)
	m.resize(m.width, m.height)
	return m.setStatus(fmt.Sprintf("Configuration reloaded (theme %s)", m.cfg.UI.Theme), statusSuccess)
}

// =============================================================================
// FOCUS AND LAYOUT
// =============================================================================

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == FocusPrompt {
		m.focus = FocusHistory
		m.prompt.Blur()
		m.syncCursor()
		return nil
	}
	return m.focusPrompt()
}

func (m *Model) focusPrompt() tea.Cmd {
	m.focus = FocusPrompt
	return m.prompt.Focus()
}

func (m *Model) restoreFocus() tea.Cmd {
	if m.focus == FocusPrompt {
		return m.prompt.Focus()
	}
	return nil
}

// syncCursor keeps the history cursor in range, on the selected thread when
// there is one.
func (m *Model) syncCursor() {
	threads := m.ctrl.Threads().List()
	selected := m.ctrl.Threads().SelectedID()
	for i, t := range threads {
		if t.ID == selected {
			m.historyCursor = i
			return
		}
	}
	if m.historyCursor >= len(threads) {
		m.historyCursor = len(threads) - 1
	}
	if m.historyCursor < 0 {
		m.historyCursor = 0
	}
}

// resize records the terminal size and recomputes the layout.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.help.Width = width
	m.layout()
	m.refreshConversation()
}

// historyWidth returns the width of the history panel, 0 when hidden.
func (m *Model) historyWidth() int {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return 0
	}
	w := m.cfg.UI.HistoryWidth
	if w < 16 {
		w = 16
	}
	if w > m.width/2 {
		w = m.width / 2
	}
	return w
}

// layout sizes the viewport, prompt and picker.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	convWidth := m.width - m.historyWidth()

	promptHeight := m.prompt.Height() + m.theme.InputContainer.GetVerticalFrameSize()
	if m.attachment != nil {
		promptHeight++
	}

	// header + status line
	chrome := 2
	vpHeight := m.height - chrome - promptHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = convWidth
	m.viewport.Height = vpHeight
	m.prompt.SetWidth(convWidth - m.theme.InputContainer.GetHorizontalFrameSize())

	m.picker.Height = m.height - 8
	if m.picker.Height < 3 {
		m.picker.Height = 3
	}

	for i := range m.loginInputs {
		m.loginInputs[i].Width = 36
	}
	for i := range m.profileInputs {
		m.profileInputs[i].Width = 36
	}
}

// refreshConversation re-renders the message list into the viewport.
func (m *Model) refreshConversation() {
	if m.ctrl == nil || m.viewport.Width == 0 {
		return
	}
	msgs := m.ctrl.Messages().List()
	if len(msgs) == 0 {
		text := "Start a new conversation below."
		if m.ctrl.Threads().SelectedID() != "" {
			text = "No messages yet."
		}
		if m.loading {
			text = "Loading..."
		}
		m.viewport.SetContent(m.theme.EmptyChat.Render(text))
		return
	}

	var active string
	if r := m.ctrl.Reveals().Active(); r != nil && !r.Done() {
		active = r.ID()
	}

	width := m.viewport.Width - 2
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, renderMessage(m.theme, m.markdown, msg, width, msg.ID == active))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}
