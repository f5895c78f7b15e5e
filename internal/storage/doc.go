// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the login session for weasel.
//
// The backend authenticates with a session cookie. CookieJar keeps cookies
// in memory for the HTTP client and mirrors them into a SQLite database so
// that the TUI and every CLI command share one login across restarts.
//
// # Key Types
//
//   - CookieJar: http.CookieJar backed by SQLite
//
// # Usage
//
//	jar, err := storage.OpenCookieJar(path)
//	if err != nil {
//	    return err
//	}
//	defer jar.Close()
//	client := api.NewClient(baseURL).WithJar(jar)
package storage
