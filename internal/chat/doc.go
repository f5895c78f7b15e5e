// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates a Weasel session on top of the stores and the
// backend client.
//
// The Controller owns the rules that span both stores: selecting a thread
// clears the conversation before its history is fetched, a submission
// appends the user turn before any network call, deleting the selected
// thread empties the conversation, and a 401 anywhere resets the session.
//
// Blocking work is split into begin/network/complete steps so a Bubble Tea
// program can run the network step in a tea.Cmd and apply the result on the
// Update loop. The composed forms (SyncThread, Submit) serve the REPL and
// tests.
//
// # Key Types
//
//   - Controller: Session orchestration
//   - Backend: The subset of the REST client the controller calls
//   - SyncTicket: Tag of one history fetch; stale tickets are discarded
//   - Draft / Submission: A prompt before and during dispatch
//
// # Usage
//
//	ctrl := chat.NewController(client, store.NewSessionStore(), store.NewMessageStore())
//	if err := ctrl.RefreshThreads(ctx); chat.IsAuthExpired(err) {
//	    // show login
//	}
//	r, err := ctrl.Submit(ctx, chat.Draft{Text: "hello"})
package chat
