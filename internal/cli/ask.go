// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/chat"
	"github.com/kkamji/weasel-tui/internal/config"
	"github.com/kkamji/weasel-tui/internal/reveal"
)

// askHistoryFile keeps REPL input history in the config directory.
const askHistoryFile = "ask_history"

func newAskCmd(opts *rootOptions) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Chat in line mode",
		Long: `Chat with Weasel without the full-screen interface.

Type a message and press enter. Commands:
  /image PATH   attach an image to the next message
  /detach       drop the pending image
  /new          start a new thread
  /threads      list threads
  /open ID      switch to a thread and print it
  /quit         leave (also ctrl+d)

Press ctrl+c while an answer is printing to skip to its end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				return runAsk(cmd.Context(), a, threadID, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "continue an existing thread")
	return cmd
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineEditor provides input history and line editing for the REPL.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, askHistoryFile)}
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Read reads one line. Non-empty input is added to the history.
func (e *lineEditor) Read(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (e *lineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// askSession is the state of one REPL run.
type askSession struct {
	app     *app
	out     io.Writer
	pending *attach.Image
	animate bool
}

func runAsk(ctx context.Context, a *app, threadID string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &askSession{app: a, out: out, animate: IsStdoutTTY()}

	if threadID != "" {
		if err := s.open(ctx, threadID); err != nil {
			return err
		}
	}

	editor := newLineEditor()
	defer editor.Close()

	fmt.Fprintln(out, DimStyle.Render("Type a message, /help for commands, ctrl+d to leave."))
	for {
		prompt := "weasel> "
		if s.pending != nil {
			prompt = "weasel [image]> "
		}
		input, err := editor.Read(prompt)
		if err != nil {
			// ctrl+c, ctrl+d or a closed stdin all end the session.
			fmt.Fprintln(out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.command(ctx, input)
			if err != nil {
				if chat.IsAuthExpired(err) {
					return err
				}
				DisplayError(out, err)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := s.send(ctx, input); err != nil {
			if chat.IsAuthExpired(err) {
				return err
			}
			DisplayError(out, err)
		}
	}
}

// command runs a slash command and reports whether the REPL should end.
func (s *askSession) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	ctrl := s.app.ctrl

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(s.out, DimStyle.Render("/image PATH, /detach, /new, /threads, /open ID, /quit"))

	case "/image":
		if arg == "" {
			return false, fmt.Errorf("usage: /image PATH")
		}
		img, err := attach.Load(arg)
		if err != nil {
			return false, err
		}
		s.pending = img
		fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("Attached %s (%d KB)", img.Name, img.Size()/1024)))

	case "/detach":
		s.pending = nil
		fmt.Fprintln(s.out, DimStyle.Render("Image removed"))

	case "/new":
		ctrl.NewThread()
		fmt.Fprintln(s.out, DimStyle.Render("New thread"))

	case "/threads":
		if err := ctrl.RefreshThreads(ctx); err != nil {
			return false, s.expire(err)
		}
		printThreads(s.out, ctrl.Threads().List())

	case "/open":
		if arg == "" {
			return false, fmt.Errorf("usage: /open ID")
		}
		return false, s.open(ctx, arg)

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

// open switches to a thread and prints it.
func (s *askSession) open(ctx context.Context, id string) error {
	if err := s.app.ctrl.SyncThread(ctx, id); err != nil {
		return s.expire(err)
	}
	printTranscript(s.out, s.app.ctrl.Messages().List())
	return nil
}

// send submits one prompt and prints the answer as it is revealed.
// ctrl+c while waiting cancels the request; while printing it skips to the
// end of the answer.
func (s *askSession) send(ctx context.Context, text string) error {
	ctrl := s.app.ctrl
	before := ctrl.Threads().SelectedID()

	reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r, err := ctrl.Submit(reqCtx, chat.Draft{Text: text, Image: s.pending})
	if err != nil {
		return s.expire(err)
	}
	s.pending = nil

	if after := ctrl.Threads().SelectedID(); after != before && after != "" {
		if t, ok := ctrl.Threads().Get(after); ok {
			fmt.Fprintln(s.out, DimStyle.Render("New thread: "+t.DisplayTitle()))
		}
	}
	if r == nil {
		return nil
	}
	defer ctrl.Reveals().Release(r)

	fmt.Fprint(s.out, BotStyle.Render("Weasel:")+" ")
	if !s.animate {
		r.Finish()
		fmt.Fprintln(s.out, r.Text())
		return nil
	}

	// ctrl+c from here on skips to the end of the answer.
	done := make(chan struct{})
	go func() {
		select {
		case <-reqCtx.Done():
			ctrl.Reveals().SkipActive()
		case <-done:
		}
	}()

	printed := 0
	reveal.Run(ctx, r, reveal.FrameInterval(s.app.cfg.UI.RevealFPS), func(unit string) {
		fmt.Fprint(s.out, unit)
		printed++
	})
	close(done)

	if printed < r.Len() && !r.Canceled() {
		fmt.Fprint(s.out, strings.Join(reveal.Split(r.Text())[printed:], ""))
	}
	fmt.Fprintln(s.out)
	return nil
}

// expire resets local state when err means the session is gone.
func (s *askSession) expire(err error) error {
	s.app.ctrl.HandleError(err)
	return err
}
