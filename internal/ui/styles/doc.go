// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and Lip Gloss styles of the Weasel TUI.

All colors are lipgloss.AdaptiveColor values so they follow the terminal's
light or dark background. A Theme bundles the styles of every screen; the
theme mode ("auto", "dark", "light") comes from the ui.theme setting.

# Colors (colors.go)

  - Purple: bot turns, selection
  - Cyan: brand, user turns, focus
  - Emerald / Amber / Rose: delivered, pending, failed

# Usage

	theme := styles.NewTheme("auto")
	fmt.Println(theme.Title.Render("Weasel"))
	fmt.Println(styles.RenderError("login failed"))
*/
package styles
