// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the weasel command tree.
//
// Without a subcommand weasel starts the full-screen TUI. The subcommands
// expose the same operations for scripts and plain terminals:
//
//	weasel login [--email E]
//	weasel register --email E [--photo FILE]
//	weasel logout
//	weasel profile
//	weasel profile update [--password] [--photo FILE]
//	weasel history list
//	weasel history show ID [--json]
//	weasel history delete ID [--yes]
//	weasel ask [--thread ID]
//
// Every command shares one login: session cookies live in a SQLite file
// next to the config. Commands that hit an expired session exit with
// ExitAuthError and a hint to run `weasel login`.
package cli
