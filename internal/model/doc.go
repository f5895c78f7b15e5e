// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for threads and messages.
//
// This package defines the core domain types shared by the stores, the
// backend client and the UI.
//
// # Key Types
//
//   - Thread: A conversation thread ("history") owned by the backend
//   - Message: A single user or bot turn shown in the conversation view
//   - Role: Message role enumeration (user, bot)
//   - DeliveryStatus: Outcome of an optimistic user turn (pending, delivered, failed)
//   - PromptRecord: One entry of a thread's backend log, expanded into two messages
//
// # Usage
//
// Build the conversation view from a thread log:
//
//	msgs := model.ExpandRecords(records)
//
// Create an optimistic user turn:
//
//	msg := model.NewUserMessage("hello", "")
//	// msg.Status == model.StatusPending
package model
