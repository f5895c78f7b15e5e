// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/kkamji/weasel-tui/internal/model"
	"github.com/kkamji/weasel-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// markdownRenderer renders finished bot answers with glamour and caches the
// output per message and width. Answers still being revealed are drawn as
// plain text.
type markdownRenderer struct {
	style   string
	enabled bool

	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer(style string, enabled bool) *markdownRenderer {
	return &markdownRenderer{
		style:   style,
		enabled: enabled,
		cache:   make(map[string]string),
	}
}

// configure changes style or enablement, dropping the cache when needed.
func (r *markdownRenderer) configure(style string, enabled bool) {
	if r.style == style && r.enabled == enabled {
		return
	}
	r.style = style
	r.enabled = enabled
	r.renderer = nil
	r.cache = make(map[string]string)
}

// render returns content rendered for width, or "" with ok=false when
// markdown is disabled or rendering failed.
func (r *markdownRenderer) render(id, content string, width int) (string, bool) {
	if !r.enabled || width <= 0 {
		return "", false
	}
	if width != r.width || r.renderer == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", false
		}
		r.renderer = tr
		r.width = width
		r.cache = make(map[string]string)
	}

	key := id + "\x00" + content
	if out, ok := r.cache[key]; ok {
		return out, true
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return "", false
	}
	out = strings.Trim(out, "\n")
	r.cache[key] = out
	return out, true
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderMessage draws one turn. revealing marks the bot turn under reveal.
func renderMessage(t *styles.Theme, md *markdownRenderer, msg model.Message, width int, revealing bool) string {
	var b strings.Builder

	label := t.UserLabel
	bubble := t.UserBubble
	if msg.IsBot() {
		label = t.BotLabel
		bubble = t.BotBubble
	}
	b.WriteString(label.Render(msg.Role.DisplayName()))
	switch msg.Status {
	case model.StatusPending:
		b.WriteString(" " + t.PendingMark.Render(styles.StatusIndicators.Pending+" sending"))
	case model.StatusFailed:
		reason := "failed"
		if msg.Err != nil {
			reason = "failed: " + msg.Err.Error()
		}
		b.WriteString(" " + t.FailedMark.Render(styles.StatusIndicators.Error+" "+reason))
	}
	b.WriteString("\n")

	inner := width - bubble.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	var body []string
	if msg.HasImage() {
		body = append(body, t.ImageRef.Render(imageLabel(msg.ImageURL)))
	}

	content := msg.Content
	switch {
	case msg.IsBot() && !revealing && content != "":
		if out, ok := md.render(msg.ID, content, inner); ok {
			body = append(body, out)
		} else {
			body = append(body, lipgloss.NewStyle().Width(inner).Render(content))
		}
	case revealing:
		body = append(body, lipgloss.NewStyle().Width(inner).Render(content)+t.RevealCursor.Render("▌"))
	case content != "":
		body = append(body, lipgloss.NewStyle().Width(inner).Render(content))
	}

	if len(body) > 0 {
		b.WriteString(bubble.Render(strings.Join(body, "\n")))
	}
	return b.String()
}

// imageLabel describes an image reference without dumping data URLs.
func imageLabel(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		// Base64 is 4/3 of the payload.
		kb := (len(ref) - strings.Index(ref, ",") - 1) * 3 / 4 / 1024
		return fmt.Sprintf("[image] attached (%d KB)", kb)
	}
	return "[image] " + ref
}

// =============================================================================
// HELPERS
// =============================================================================

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "…")
}

// center places content in the middle of a width x height box.
func center(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
