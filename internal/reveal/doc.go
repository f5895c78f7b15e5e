// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal grows a bot message's content one character per frame.
//
// The backend returns whole answers; the reveal replays them so the
// conversation view reads like a stream. A "character" is a user-perceived
// character (grapheme cluster) of the NFC-normalized answer, so emoji and
// combining sequences never appear half drawn.
//
// # Key Types
//
//   - Reveal: One cancellable reveal targeting one message ID
//   - Manager: Keeps at most one reveal active at a time
//   - TickMsg: Bubble Tea message driving a reveal at frame cadence
//
// # Cancellation
//
// A reveal stops on its own when the message store it writes to is cleared
// or replaced (its epoch changes) or its message disappears. Starting a new
// reveal through a Manager fast-forwards the previous one.
//
// # Usage
//
// Inside a Bubble Tea program:
//
//	r := reveal.New(messages, botID, answer)
//	mgr.Start(r)
//	return m, reveal.TickCmd(r, reveal.FrameInterval(60))
//
// From a line-mode loop:
//
//	err := reveal.Run(ctx, r, reveal.FrameInterval(60), func(unit string) {
//	    fmt.Print(unit)
//	})
package reveal
