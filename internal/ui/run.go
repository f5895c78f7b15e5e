// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kkamji/weasel-tui/internal/config"
)

// configDebounce coalesces editor save bursts.
const configDebounce = 250 * time.Millisecond

// RunOptions extends Options with the program-level settings.
type RunOptions struct {
	Options

	// ConfigPath is watched for changes when set.
	ConfigPath string
}

// Run starts the full-screen program and blocks until it exits.
func Run(opts RunOptions) error {
	m := New(opts.Options)
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if opts.ConfigPath != "" {
		w, err := config.NewWatcher(opts.ConfigPath, configDebounce, func(cfg *config.Config, err error) {
			p.Send(ConfigReloadedMsg{Config: cfg, Err: err})
		})
		if err != nil {
			m.logger.Warn("config watcher disabled", "path", opts.ConfigPath, "err", err)
		} else {
			defer w.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running weasel: %w", err)
	}
	return nil
}
