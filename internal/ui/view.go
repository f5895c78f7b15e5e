// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.screen == ScreenLogin {
		return m.viewLogin()
	}

	switch m.overlay {
	case OverlayHelp:
		return center(m.viewHelp(), m.width, m.height)
	case OverlayError:
		return center(m.viewError(), m.width, m.height)
	case OverlayConfirmDelete:
		return center(m.viewConfirmDelete(), m.width, m.height)
	case OverlayProfile:
		return center(m.viewProfile(), m.width, m.height)
	case OverlayFilePicker:
		return m.viewFilePicker()
	}
	return m.viewChat()
}

// =============================================================================
// LOGIN SCREEN
// =============================================================================

func (m *Model) viewLogin() string {
	t := m.theme
	var b strings.Builder

	title := "Sign in to Weasel"
	if m.registering {
		title = "Create a Weasel account"
	}
	b.WriteString(t.Title.Render(title) + "\n\n")

	fields := []struct {
		label string
		index int
	}{
		{"Email", fieldEmail},
		{"Password", fieldPassword},
	}
	if m.registering {
		fields = append(fields, struct {
			label string
			index int
		}{"Photo", fieldPhoto})
	}
	for _, f := range fields {
		b.WriteString(t.FormLabel.Render(f.label) + " " + m.loginInputs[f.index].View() + "\n")
	}
	b.WriteString("\n")

	action := "Sign in"
	if m.registering {
		action = "Register"
	}
	if m.authBusy {
		b.WriteString(m.spinner.View() + " " + t.Subtitle.Render("Contacting server..."))
	} else {
		b.WriteString(t.FormActive.Render(action))
	}
	b.WriteString("\n")

	if m.authErr != "" {
		b.WriteString("\n" + styles.RenderError(m.authErr) + "\n")
	}

	toggle := "ctrl+r: create an account"
	if m.registering {
		toggle = "ctrl+r: back to sign in"
	}
	b.WriteString("\n" + t.Subtitle.Render("tab: next field  enter: "+strings.ToLower(action)+"  "+toggle+"  ctrl+c: quit"))

	return center(t.FormBox.Render(b.String()), m.width, m.height)
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

func (m *Model) viewChat() string {
	header := m.viewHeader()
	status := m.viewStatus()

	conversation := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.viewPrompt(),
	)

	body := conversation
	if w := m.historyWidth(); w > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.viewHistory(w, lipgloss.Height(conversation)), conversation)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m *Model) viewHeader() string {
	t := m.theme
	title := t.Title.Render("Weasel")

	subtitle := "new conversation"
	if id := m.ctrl.Threads().SelectedID(); id != "" {
		if th, ok := m.ctrl.Threads().Get(id); ok {
			subtitle = th.DisplayTitle()
		}
	}
	line := title + "  " + t.Subtitle.Render(truncate(subtitle, m.width-12))
	return t.Header.Width(m.width).Render(line)
}

// viewHistory draws the thread list in a panel of the given outer size.
func (m *Model) viewHistory(width, height int) string {
	t := m.theme
	panel := t.HistoryPanel
	if m.focus == FocusHistory {
		panel = t.HistoryPanelFocused
	}
	innerW := width - panel.GetHorizontalFrameSize()
	innerH := height - panel.GetVerticalFrameSize()
	if innerW < 1 || innerH < 1 {
		return ""
	}

	threads := m.ctrl.Threads().List()
	selected := m.ctrl.Threads().SelectedID()

	lines := []string{t.BotLabel.Render("History")}
	if len(threads) == 0 {
		lines = append(lines, t.HistoryEmpty.Render(truncate("no threads yet", innerW)))
	}

	// Keep the cursor visible.
	visible := innerH - 1
	start := 0
	if m.historyCursor >= visible {
		start = m.historyCursor - visible + 1
	}
	for i := start; i < len(threads) && i-start < visible; i++ {
		th := threads[i]
		marker := "  "
		if th.ID == selected {
			marker = "> "
		}
		text := marker + truncate(th.DisplayTitle(), innerW-2)

		style := t.HistoryItem
		if th.ID == selected {
			style = t.HistoryItemSelected
		}
		if m.focus == FocusHistory && i == m.historyCursor {
			style = style.Inherit(t.HistoryItemCursor)
		}
		lines = append(lines, style.Render(text))
	}

	return panel.
		Width(innerW).
		Height(innerH).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) viewPrompt() string {
	t := m.theme
	box := t.InputContainer
	if m.focus == FocusPrompt {
		box = t.InputFocused
	}

	content := m.prompt.View()
	if m.attachment != nil {
		content = t.Attachment.Render(fmt.Sprintf("[image] %s (%d KB)  ctrl+x to remove",
			m.attachment.Name, m.attachment.Size()/1024)) + "\n" + content
	}
	return box.Render(content)
}

func (m *Model) viewStatus() string {
	t := m.theme
	var left string

	switch {
	case m.ctrl.Submitting():
		left = m.spinner.View() + " Weasel is thinking..."
	case m.loading:
		left = m.spinner.View() + " Loading..."
	default:
		if r := m.ctrl.Reveals().Active(); r != nil && !r.Done() {
			left = m.progress.ViewAs(r.Progress()) + " esc to skip"
		}
	}

	if m.status != "" {
		if left != "" {
			left += "  "
		}
		switch m.statusKind {
		case statusError:
			left += styles.RenderError(m.status)
		case statusSuccess:
			left += styles.RenderSuccess(m.status)
		default:
			left += styles.RenderInfo(m.status)
		}
	}

	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - t.StatusBar.GetHorizontalFrameSize()
	if gap < 1 {
		right = ""
		gap = 1
	}
	return t.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m *Model) viewHelp() string {
	h := m.help
	h.ShowAll = true
	return m.theme.FormBox.Render(m.theme.Title.Render("Keys") + "\n\n" + h.View(m.keys) +
		"\n\n" + m.theme.Subtitle.Render("esc to close"))
}

func (m *Model) viewError() string {
	t := m.theme
	width := m.width * 2 / 3
	if width < 30 {
		width = m.width - 4
	}
	body := lipgloss.NewStyle().Width(width).Render(m.errText)
	return t.ErrorBox.Render(t.ErrorTitle.Render(styles.StatusIndicators.Error+" "+m.errTitle) +
		"\n\n" + body + "\n\n" + t.Subtitle.Render("press any key"))
}

func (m *Model) viewConfirmDelete() string {
	t := m.theme
	title := m.pendingDelete
	if th, ok := m.ctrl.Threads().Get(m.pendingDelete); ok {
		title = th.DisplayTitle()
	}
	return t.ConfirmBox.Render(styles.RenderWarning("Delete this thread?") + "\n\n" +
		truncate(title, 50) + "\n\n" + t.Subtitle.Render("y: delete  n: keep"))
}

func (m *Model) viewProfile() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Profile") + "\n\n")

	switch {
	case m.profile != nil:
		b.WriteString(t.FormLabel.Render("Email") + " " + t.ProfileInfo.Render(m.profile.Email) + "\n")
		b.WriteString(t.FormLabel.Render("ID") + " " + t.ProfileInfo.Render(m.profile.ID) + "\n")
		photo := m.profile.PhotoURL
		if photo == "" {
			photo = "(none)"
		}
		b.WriteString(t.FormLabel.Render("Photo") + " " + t.ImageRef.Render(truncate(photo, 50)) + "\n")
	case m.profileBusy:
		b.WriteString(m.spinner.View() + " Loading profile...\n")
	}

	b.WriteString("\n" + t.Subtitle.Render("Update") + "\n")
	b.WriteString(t.FormLabel.Render("Password") + " " + m.profileInputs[fieldNewPassword].View() + "\n")
	b.WriteString(t.FormLabel.Render("Photo") + " " + m.profileInputs[fieldNewPhoto].View() + "\n")

	if m.profileErr != "" {
		b.WriteString("\n" + styles.RenderError(m.profileErr) + "\n")
	}
	b.WriteString("\n" + t.Subtitle.Render("tab: next  enter: save  esc: close"))
	return t.FormBox.Render(b.String())
}

func (m *Model) viewFilePicker() string {
	t := m.theme
	return lipgloss.JoinVertical(lipgloss.Left,
		t.Header.Width(m.width).Render(t.Title.Render("Attach an image")+"  "+
			t.Subtitle.Render(m.picker.CurrentDirectory)),
		m.picker.View(),
		t.StatusBar.Width(m.width).Render("enter: choose  esc: cancel  "+strings.Join(attach.Extensions, " ")),
	)
}
