// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultFPS is the default reveal cadence.
const DefaultFPS = 60

// FrameInterval converts a frame rate into a tick interval. Out-of-range
// rates fall back to DefaultFPS.
func FrameInterval(fps int) time.Duration {
	if fps <= 0 || fps > 240 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// =============================================================================
// BUBBLE TEA DRIVER
// =============================================================================

// TickMsg asks the program to advance Reveal by one unit.
type TickMsg struct {
	Reveal   *Reveal
	Interval time.Duration
}

// DoneMsg reports that Reveal stopped, either finished or canceled.
type DoneMsg struct {
	Reveal   *Reveal
	Canceled bool
}

// TickCmd schedules the next frame of r.
func TickCmd(r *Reveal, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return TickMsg{Reveal: r, Interval: interval}
	})
}

// Advance handles a TickMsg: it writes one unit and returns the command for
// the following frame, or a DoneMsg command when the reveal stopped.
func Advance(msg TickMsg) tea.Cmd {
	r := msg.Reveal
	if _, ok := r.Next(); ok && !r.Done() {
		return TickCmd(r, msg.Interval)
	}
	return func() tea.Msg {
		return DoneMsg{Reveal: r, Canceled: r.Canceled()}
	}
}

// =============================================================================
// TICKER DRIVER
// =============================================================================

// Run drives r at the given interval until it finishes, is canceled or ctx
// ends. onUnit, when set, is called with every unit written.
func Run(ctx context.Context, r *Reveal, interval time.Duration, onUnit func(string)) error {
	if r.Done() {
		if r.Canceled() {
			return ErrCanceled
		}
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		case <-ticker.C:
			unit, ok := r.Next()
			if !ok {
				if r.Canceled() {
					return ErrCanceled
				}
				return nil
			}
			if onUnit != nil {
				onUnit(unit)
			}
			if r.Done() {
				return nil
			}
		}
	}
}
