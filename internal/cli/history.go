// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/kkamji/weasel-tui/internal/model"
)

// =============================================================================
// HISTORY COMMANDS
// =============================================================================

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show and delete conversation threads",
	}
	cmd.AddCommand(
		newHistoryListCmd(opts),
		newHistoryShowCmd(opts),
		newHistoryDeleteCmd(opts),
	)
	return cmd
}

func newHistoryListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List threads, newest first as returned by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if err := a.ctrl.RefreshThreads(cmd.Context()); err != nil {
					return err
				}
				printThreads(cmd.OutOrStdout(), a.ctrl.Threads().List())
				return nil
			})
		},
	}
}

func newHistoryShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print the messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				out := cmd.OutOrStdout()
				if asJSON {
					records, err := a.client.ListPrompts(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if records == nil {
						records = []model.PromptRecord{}
					}
					data, err := json.MarshalIndent(records, "", "  ")
					if err != nil {
						return err
					}
					return highlightJSON(out, string(data)+"\n")
				}

				if err := a.ctrl.SyncThread(cmd.Context(), args[0]); err != nil {
					return err
				}
				printTranscript(out, a.ctrl.Messages().List())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw records as JSON")
	return cmd
}

func newHistoryDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				id := args[0]
				out := cmd.OutOrStdout()
				if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete thread %s?", id)) {
					fmt.Fprintln(out, DimStyle.Render("Cancelled"))
					return nil
				}
				a.ctrl.DeleteThread(id)
				if err := a.ctrl.ConfirmDelete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(out, SuccessStyle.Render("Deleted thread "+id))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// =============================================================================
// OUTPUT
// =============================================================================

// printThreads prints one "ID  title" line per thread.
func printThreads(w io.Writer, threads []model.Thread) {
	if len(threads) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No threads yet"))
		return
	}
	idWidth := 2
	for _, t := range threads {
		if n := runewidth.StringWidth(t.ID); n > idWidth {
			idWidth = n
		}
	}
	titleWidth := GetTerminalWidth() - idWidth - 2
	for _, t := range threads {
		id := runewidth.FillRight(t.ID, idWidth)
		fmt.Fprintln(w, DimStyle.Render(id)+"  "+ValueStyle.Render(runewidth.Truncate(t.DisplayTitle(), titleWidth, "…")))
	}
}

// printTranscript prints a conversation as labeled turns.
func printTranscript(w io.Writer, msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No messages"))
		return
	}
	for i, m := range msgs {
		if i > 0 && m.IsUser() {
			fmt.Fprintln(w)
		}
		printMessage(w, m)
	}
}

func printMessage(w io.Writer, m model.Message) {
	label := UserStyle.Render(m.Role.DisplayName() + ":")
	if m.IsBot() {
		label = BotStyle.Render(m.Role.DisplayName() + ":")
	}
	if m.HasImage() {
		fmt.Fprintln(w, label+" "+DimStyle.Render("[image] "+m.ImageURL))
		if m.Content == "" {
			return
		}
		label = "  "
	}
	fmt.Fprintln(w, label+" "+m.Content)
}
