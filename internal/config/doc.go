// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for weasel.
//
// # Key Types
//
//   - Config: Complete configuration (server, auth, ui, log sections)
//   - ValidationError / ValidateErrors: Field-level validation failures
//   - Watcher: Reloads the config file when it changes on disk
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.NewClient(cfg.Server.BaseURL).WithTimeout(cfg.Timeout())
//
// Example config.toml:
//
//	[server]
//	base_url = "https://weasel-backend.kkamji.net/v1"
//	timeout_secs = 120
//
//	[ui]
//	theme = "dark"
//	reveal_fps = 60
package config
