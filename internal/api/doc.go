// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the Weasel backend.
//
// Authentication is a session cookie set by /login and carried by the
// client's cookie jar. Every authenticated call maps HTTP 401 to an error
// matching ErrUnauthorized so callers can apply one re-authentication
// policy.
//
// # Key Types
//
//   - Client: REST client with builder-style configuration
//   - Error: Non-2xx response (matches ErrUnauthorized for 401)
//   - NetworkError: Transport failure (no response received)
//   - ResultError: Login/registration rejected with a backend result code
//   - PromptResult: Answer of a prompt submission
//   - Profile: The signed-in member
//
// # Usage
//
//	client := api.NewClient("http://localhost:8080/v1").
//	    WithJar(jar).
//	    WithTimeout(2 * time.Minute)
//
//	if err := client.Login(ctx, email, password); err != nil {
//	    return err
//	}
//	threads, err := client.ListThreads(ctx)
//
// # Retries
//
// The client never retries. A failed prompt submission is reported to the
// caller, which marks the user turn as failed.
package api
