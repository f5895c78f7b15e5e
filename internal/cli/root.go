// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kkamji/weasel-tui/internal/logging"
	"github.com/kkamji/weasel-tui/internal/ui"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	logFile    string
}

// NewRootCmd builds the weasel command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "weasel",
		Short: "Terminal client for the Weasel chat service",
		Long: `weasel talks to a Weasel backend from the terminal.

Run without arguments to open the full-screen chat. Answers are revealed
one character at a time; earlier conversations are listed in the history
panel.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, runTUI)
		},
	}
	cmd.SetVersionTemplate(versionTemplate())

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.weasel/config.toml)")
	flags.StringVar(&opts.baseURL, "base-url", "", "backend API root, overrides server.base_url")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "log file (default ~/.weasel/weasel.log)")

	cmd.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newProfileCmd(opts),
		newHistoryCmd(opts),
		newAskCmd(opts),
	)
	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		DisplayError(os.Stderr, err)
	}
	return ExitCode(err)
}

func versionTemplate() string {
	if GitCommit != "unknown" && GitCommit != "" {
		return fmt.Sprintf("weasel %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
	}
	return fmt.Sprintf("weasel %s\n", Version)
}

// runTUI opens the full-screen client.
func runTUI(a *app) error {
	return ui.Run(ui.RunOptions{
		Options: ui.Options{
			Controller: a.ctrl,
			Account:    a.client,
			Config:     a.cfg,
			Logger:     logging.With("ui"),
			OnLogin:    a.rememberEmail,
		},
		ConfigPath: a.configPath,
	})
}
