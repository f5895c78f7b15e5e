// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the Bubble Tea front end of weasel.
//
// The model has two screens. The login screen signs in or registers. The
// chat screen shows the thread list next to the conversation, a prompt
// editor with an optional image attachment, and modal overlays for help,
// errors, delete confirmation, the profile and the file picker.
//
// All conversation state lives in the chat.Controller; the model only
// turns controller results into redraws and schedules the reveal ticks.
package ui
