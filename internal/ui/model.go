// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/chat"
	"github.com/kkamji/weasel-tui/internal/config"
	"github.com/kkamji/weasel-tui/internal/logging"
	"github.com/kkamji/weasel-tui/internal/reveal"
	"github.com/kkamji/weasel-tui/internal/ui/styles"
)

// Account is the authentication and profile part of the REST client.
type Account interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string, photo *attach.Image) error
	ViewProfile(ctx context.Context) (*api.Profile, error)
	UpdateProfile(ctx context.Context, u api.ProfileUpdate) (string, error)
	HasSession() bool
}

// =============================================================================
// STATE
// =============================================================================

// Screen is the top-level screen.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenChat
)

// Focus is the focused panel of the chat screen.
type Focus int

const (
	FocusPrompt Focus = iota
	FocusHistory
)

// Overlay is a modal drawn over the chat screen.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayError
	OverlayConfirmDelete
	OverlayProfile
	OverlayFilePicker
)

// statusKind picks how the status line is drawn.
type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// login form fields, in tab order.
const (
	fieldEmail = iota
	fieldPassword
	fieldPhoto
)

// profile form fields, in tab order.
const (
	fieldNewPassword = iota
	fieldNewPhoto
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures a Model.
type Options struct {
	Controller *chat.Controller
	Account    Account
	Config     *config.Config
	Logger     *log.Logger

	// OnLogin runs after a successful sign-in, e.g. to remember the email.
	OnLogin func(email string)
}

// Model is the root Bubble Tea model of the Weasel TUI.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl    *chat.Controller
	account Account
	cfg     *config.Config
	logger  *log.Logger
	onLogin func(email string)

	theme    *styles.Theme
	keys     KeyMap
	markdown *markdownRenderer

	width  int
	height int

	screen  Screen
	focus   Focus
	overlay Overlay

	// Login screen
	loginInputs []textinput.Model
	loginField  int
	registering bool
	authBusy    bool
	authErr     string

	// Chat screen
	historyCursor int
	viewport      viewport.Model
	follow        bool
	prompt        textarea.Model
	attachment    *attach.Image
	loading       bool
	spinner       spinner.Model
	progress      progress.Model
	help          help.Model
	picker        filepicker.Model

	// Overlays
	errTitle      string
	errText       string
	pendingDelete string
	profile       *api.Profile
	profileInputs []textinput.Model
	profileField  int
	profileBusy   bool
	profileErr    string

	// Status line
	status     string
	statusKind statusKind
	statusGen  int

	revealInterval time.Duration
}

// New creates the root model.
func New(opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.With("ui")
	}

	ctx, cancel := context.WithCancel(context.Background())
	theme := styles.NewTheme(cfg.UI.Theme)

	m := &Model{
		ctx:            ctx,
		cancel:         cancel,
		ctrl:           opts.Controller,
		account:        opts.Account,
		cfg:            cfg,
		logger:         logger,
		onLogin:        opts.OnLogin,
		theme:          theme,
		keys:           DefaultKeyMap(),
		markdown:       newMarkdownRenderer(theme.GlamourStyle(), cfg.UI.Markdown),
		follow:         true,
		revealInterval: reveal.FrameInterval(cfg.UI.RevealFPS),
	}

	m.loginInputs = newLoginInputs(cfg.Auth.LastEmail)
	m.profileInputs = newProfileInputs()

	m.prompt = textarea.New()
	m.prompt.Placeholder = "Ask Weasel anything..."
	m.prompt.ShowLineNumbers = false
	m.prompt.CharLimit = 0
	m.prompt.SetHeight(3)
	m.prompt.KeyMap.InsertNewline = m.keys.Newline

	m.viewport = viewport.New(0, 0)

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = theme.BotLabel

	m.progress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(16), progress.WithoutPercentage())

	m.help = help.New()

	m.picker = filepicker.New()
	m.picker.AllowedTypes = attach.Extensions
	m.picker.AutoHeight = false
	if home, err := os.UserHomeDir(); err == nil {
		m.picker.CurrentDirectory = home
	}

	if m.account != nil && m.account.HasSession() {
		m.screen = ScreenChat
	} else {
		m.screen = ScreenLogin
	}
	return m
}

func newLoginInputs(lastEmail string) []textinput.Model {
	inputs := make([]textinput.Model, 3)

	inputs[fieldEmail] = textinput.New()
	inputs[fieldEmail].Placeholder = "you@example.com"
	inputs[fieldEmail].Prompt = ""
	inputs[fieldEmail].SetValue(lastEmail)

	inputs[fieldPassword] = textinput.New()
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].Prompt = ""
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '*'

	inputs[fieldPhoto] = textinput.New()
	inputs[fieldPhoto].Placeholder = "optional path to a profile photo"
	inputs[fieldPhoto].Prompt = ""

	if lastEmail != "" {
		inputs[fieldPassword].Focus()
	} else {
		inputs[fieldEmail].Focus()
	}
	return inputs
}

func newProfileInputs() []textinput.Model {
	inputs := make([]textinput.Model, 2)

	inputs[fieldNewPassword] = textinput.New()
	inputs[fieldNewPassword].Placeholder = "new password (optional)"
	inputs[fieldNewPassword].Prompt = ""
	inputs[fieldNewPassword].EchoMode = textinput.EchoPassword
	inputs[fieldNewPassword].EchoCharacter = '*'

	inputs[fieldNewPhoto] = textinput.New()
	inputs[fieldNewPhoto].Placeholder = "path to a new photo (optional)"
	inputs[fieldNewPhoto].Prompt = ""
	return inputs
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.screen == ScreenChat {
		cmds = append(cmds, m.enterChat())
	}
	return tea.Batch(cmds...)
}

// Screen returns the current screen.
func (m *Model) Screen() Screen {
	return m.screen
}

// CurrentOverlay returns the active overlay.
func (m *Model) CurrentOverlay() Overlay {
	return m.overlay
}

// Status returns the status line text.
func (m *Model) Status() string {
	return m.status
}

// Close cancels every request started by the model.
func (m *Model) Close() {
	m.cancel()
}
