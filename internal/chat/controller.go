// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/logging"
	"github.com/kkamji/weasel-tui/internal/model"
	"github.com/kkamji/weasel-tui/internal/reveal"
	"github.com/kkamji/weasel-tui/internal/store"
)

// Backend is the part of the REST client the controller needs.
type Backend interface {
	ListThreads(ctx context.Context) ([]model.Thread, error)
	ListPrompts(ctx context.Context, threadID string) ([]model.PromptRecord, error)
	AddPrompt(ctx context.Context, threadID, text string, img *attach.Image) (*api.PromptResult, error)
	DeleteThread(ctx context.Context, threadID string) error
	Logout(ctx context.Context) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller coordinates the session and message stores with the backend.
// It is safe for concurrent use.
type Controller struct {
	backend  Backend
	threads  *store.SessionStore
	messages *store.MessageStore
	reveals  *reveal.Manager
	logger   *log.Logger

	// mu orders selection changes against history results and submission
	// completion.
	mu         sync.Mutex
	syncSeq    uint64
	syncCancel *cancelHolder
	syncing    bool
	submitting bool
	generation uint64

	onReset func() error
}

// NewController creates a controller over the given stores.
func NewController(backend Backend, threads *store.SessionStore, messages *store.MessageStore) *Controller {
	return &Controller{
		backend:    backend,
		threads:    threads,
		messages:   messages,
		reveals:    reveal.NewManager(),
		logger:     logging.With("chat"),
		syncCancel: newCancelHolder(),
	}
}

// WithLogger sets the logger.
func (c *Controller) WithLogger(logger *log.Logger) *Controller {
	c.logger = logger
	return c
}

// WithSessionReset registers a hook run whenever the session is reset by
// logout or auth expiry, e.g. to clear persisted cookies.
func (c *Controller) WithSessionReset(fn func() error) *Controller {
	c.onReset = fn
	return c
}

// Threads returns the read-only thread list.
func (c *Controller) Threads() store.ThreadReader {
	return c.threads
}

// Messages returns the read-only conversation.
func (c *Controller) Messages() store.MessageReader {
	return c.messages
}

// Reveals returns the reveal manager.
func (c *Controller) Reveals() *reveal.Manager {
	return c.reveals
}

// Submitting reports whether a prompt is awaiting its answer.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// dropConversationLocked stops everything targeting the current
// conversation and empties it. Caller must hold mu.
func (c *Controller) dropConversationLocked() {
	c.reveals.CancelAll()
	c.syncCancel.cancel()
	c.syncSeq++
	c.syncing = false
	c.messages.Clear()
}

// =============================================================================
// HISTORY SYNC
// =============================================================================

// SyncTicket tags one history fetch.
type SyncTicket struct {
	ThreadID string
	Seq      uint64
}

// SelectThread selects id, stops any reveal and fetch in flight and empties
// the conversation. The returned ticket is passed to FetchHistory and
// ApplyHistory.
func (c *Controller) SelectThread(id string) SyncTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropConversationLocked()
	c.threads.Select(id)
	c.syncing = true
	c.logger.Debug("thread selected", "thread", id, "seq", c.syncSeq)
	return SyncTicket{ThreadID: id, Seq: c.syncSeq}
}

// NewThread deselects the current thread so the next prompt starts a new
// one.
func (c *Controller) NewThread() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropConversationLocked()
	c.threads.ClearSelection()
}

// FetchHistory loads the log of the ticket's thread. A later SelectThread
// cancels it.
func (c *Controller) FetchHistory(ctx context.Context, t SyncTicket) ([]model.PromptRecord, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if t.Seq != c.syncSeq {
		c.mu.Unlock()
		return nil, ErrStaleSync
	}
	c.syncCancel.set(t.Seq, cancel)
	c.mu.Unlock()
	defer c.syncCancel.release(t.Seq)

	return c.backend.ListPrompts(ctx, t.ThreadID)
}

// ApplyHistory installs a fetched log when t is still current and returns
// ErrStaleSync otherwise. On fetch failure the conversation stays empty and
// the error is returned. Either way a current ticket ends the sync, so
// prompts are accepted again.
func (c *Controller) ApplyHistory(t SyncTicket, records []model.PromptRecord, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Seq != c.syncSeq || c.threads.SelectedID() != t.ThreadID {
		c.logger.Debug("discarding stale history", "thread", t.ThreadID, "seq", t.Seq, "current", c.syncSeq)
		return ErrStaleSync
	}
	c.syncing = false
	if err != nil {
		c.logger.Warn("history fetch failed", "thread", t.ThreadID, "err", err)
		return fmt.Errorf("load thread: %w", err)
	}
	c.messages.ReplaceAll(model.ExpandRecords(records))
	return nil
}

// SyncThread selects id and loads its history.
func (c *Controller) SyncThread(ctx context.Context, id string) error {
	t := c.SelectThread(id)
	records, err := c.FetchHistory(ctx, t)
	return c.ApplyHistory(t, records, err)
}

// RefreshThreads reloads the thread list. The selection survives if the
// thread still exists; otherwise the conversation is emptied.
func (c *Controller) RefreshThreads(ctx context.Context) error {
	threads, err := c.backend.ListThreads(ctx)
	if err != nil {
		return fmt.Errorf("load threads: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.threads.SelectedID()
	c.threads.Replace(threads)
	if prev != "" && c.threads.SelectedID() == "" {
		c.dropConversationLocked()
	}
	return nil
}

// =============================================================================
// PROMPT SUBMISSION
// =============================================================================

// Draft is what the user composed.
type Draft struct {
	Text  string
	Image *attach.Image
}

// Empty reports whether the draft has neither text nor image.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.Image == nil
}

// Submission is a draft that passed validation and has its user turn in the
// conversation.
type Submission struct {
	Draft Draft

	// ThreadID is the thread the prompt goes to; empty creates a new one.
	ThreadID string

	// UserMessageID is the optimistic user turn.
	UserMessageID string

	epoch      uint64
	generation uint64
}

// BeginSubmit validates d and appends the pending user turn. Nothing is
// touched when validation fails or while the selected thread is still
// loading, since the loaded history would replace the pending turn.
func (c *Controller) BeginSubmit(d Draft) (*Submission, error) {
	if d.Empty() {
		return nil, ErrEmptyPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return nil, ErrSubmissionInFlight
	}
	if c.syncing {
		return nil, ErrThreadLoading
	}
	c.submitting = true

	var preview string
	if d.Image != nil {
		preview = d.Image.DataURL()
	}
	msg := model.NewUserMessage(d.Text, preview)
	c.messages.Append(msg)

	return &Submission{
		Draft:         d,
		ThreadID:      c.threads.SelectedID(),
		UserMessageID: msg.ID,
		epoch:         c.messages.Epoch(),
		generation:    c.generation,
	}, nil
}

// Send performs the network call of s.
func (c *Controller) Send(ctx context.Context, s *Submission) (*api.PromptResult, error) {
	return c.backend.AddPrompt(ctx, s.ThreadID, s.Draft.Text, s.Draft.Image)
}

// CompleteSubmit applies the outcome of Send. On success the user turn is
// delivered, a new thread is registered and selected, and an empty bot turn
// is appended with a reveal started for it. On failure the user turn is
// marked failed and the error returned.
//
// When the conversation changed while the request was out, a new thread is
// still registered but neither selected nor given the bot turn; the
// returned reveal is nil.
func (c *Controller) CompleteSubmit(s *Submission, res *api.PromptResult, err error) (*reveal.Reveal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err == nil && res == nil {
		err = fmt.Errorf("empty response")
	}
	if err != nil {
		c.messages.SetStatus(s.UserMessageID, model.StatusFailed, err)
		c.logger.Warn("prompt failed", "thread", s.ThreadID, "err", err)
		return nil, fmt.Errorf("send prompt: %w", err)
	}

	if s.generation != c.generation {
		c.logger.Debug("answer arrived after session reset", "prompt", res.PromptID)
		return nil, nil
	}

	stale := c.messages.Epoch() != s.epoch
	if s.ThreadID == "" && res.Thread != nil {
		c.threads.Add(*res.Thread)
		if !stale {
			c.threads.Select(res.Thread.ID)
		}
	}
	if stale {
		c.logger.Debug("answer arrived after thread switch", "prompt", res.PromptID)
		return nil, nil
	}

	c.messages.SetStatus(s.UserMessageID, model.StatusDelivered, nil)
	bot := model.NewBotMessage(res.PromptID, "")
	c.messages.Append(bot)

	r := reveal.New(c.messages, bot.ID, res.Answer)
	c.reveals.Start(r)
	return r, nil
}

// Submit runs a whole submission and returns the started reveal.
func (c *Controller) Submit(ctx context.Context, d Draft) (*reveal.Reveal, error) {
	s, err := c.BeginSubmit(d)
	if err != nil {
		return nil, err
	}
	res, err := c.Send(ctx, s)
	return c.CompleteSubmit(s, res, err)
}

// =============================================================================
// DELETION
// =============================================================================

// DeleteThread removes id locally. If it was selected, the conversation is
// emptied. It reports whether the thread was selected. The backend is told
// separately with ConfirmDelete.
func (c *Controller) DeleteThread(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasSelected := c.threads.SelectedID() == id
	c.threads.Remove(id)
	if wasSelected {
		c.dropConversationLocked()
	}
	return wasSelected
}

// ConfirmDelete deletes id on the backend. Local state is not rolled back
// on failure.
func (c *Controller) ConfirmDelete(ctx context.Context, id string) error {
	if err := c.backend.DeleteThread(ctx, id); err != nil {
		c.logger.Warn("backend delete failed", "thread", id, "err", err)
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// SESSION
// =============================================================================

// Reset drops all local session state: threads, selection, conversation,
// reveal and fetch in flight. The reset hook runs last.
func (c *Controller) Reset() error {
	c.mu.Lock()
	c.dropConversationLocked()
	c.threads.Reset()
	c.generation++
	c.mu.Unlock()

	if c.onReset != nil {
		if err := c.onReset(); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
	}
	return nil
}

// Logout ends the session on the backend and resets local state whatever
// the backend answered.
func (c *Controller) Logout(ctx context.Context) error {
	netErr := c.backend.Logout(ctx)
	if netErr != nil {
		c.logger.Warn("backend logout failed", "err", netErr)
	}
	if err := c.Reset(); err != nil {
		return err
	}
	if netErr != nil && !IsAuthExpired(netErr) {
		return fmt.Errorf("logout: %w", netErr)
	}
	return nil
}

// HandleError applies the auth-expiry policy: when err means the session
// expired, local state is reset. It reports whether that happened.
func (c *Controller) HandleError(err error) bool {
	if !IsAuthExpired(err) {
		return false
	}
	c.logger.Info("session expired")
	if rerr := c.Reset(); rerr != nil {
		c.logger.Warn("reset after expiry failed", "err", rerr)
	}
	return true
}
