// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side state of a Weasel session.
//
// There are two stores and no package-level state: each UI instance (or
// test) creates its own and hands narrow capability interfaces to the
// components that need them.
//
// # Key Types
//
//   - SessionStore: Thread list plus the selected thread ID
//   - MessageStore: Ordered messages of the selected thread
//   - ThreadReader / ThreadWriter: Capability views of a SessionStore
//   - MessageReader / MessageWriter: Capability views of a MessageStore
//
// # Epochs
//
// MessageStore.Epoch increments on every Clear and ReplaceAll. Long-running
// work that targets the current list (a reveal, a submission) captures the
// epoch up front and stops touching the store once it changes.
//
// # Usage
//
//	sessions := store.NewSessionStore()
//	messages := store.NewMessageStore()
//
//	sessions.Select("t1")
//	messages.Clear()
//	messages.ReplaceAll(model.ExpandRecords(records))
package store
