// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkamji/weasel-tui/internal/api"
	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/logging"
	"github.com/kkamji/weasel-tui/internal/model"
	"github.com/kkamji/weasel-tui/internal/reveal"
	"github.com/kkamji/weasel-tui/internal/store"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend is an in-memory Backend. Fields are read under mu.
type fakeBackend struct {
	mu sync.Mutex

	threads   []model.Thread
	prompts   map[string][]model.PromptRecord
	result    *api.PromptResult
	addErr    error
	deleteErr error
	listErr   error
	logoutErr error

	calls     []string
	lastAdd   string
	addedText string
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) ListThreads(ctx context.Context) ([]model.Thread, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threads, f.listErr
}

func (f *fakeBackend) ListPrompts(ctx context.Context, id string) ([]model.PromptRecord, error) {
	f.record("prompts " + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[id], nil
}

func (f *fakeBackend) AddPrompt(ctx context.Context, id, text string, img *attach.Image) (*api.PromptResult, error) {
	f.record("add")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAdd = id
	f.addedText = text
	return f.result, f.addErr
}

func (f *fakeBackend) DeleteThread(ctx context.Context, id string) error {
	f.record("delete " + id)
	return f.deleteErr
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.record("logout")
	return f.logoutErr
}

func newTestController(b Backend) (*Controller, *store.SessionStore, *store.MessageStore) {
	threads := store.NewSessionStore()
	messages := store.NewMessageStore()
	c := NewController(b, threads, messages).WithLogger(logging.Discard())
	return c, threads, messages
}

// drain steps r to the end and returns the content after every step.
func drain(t *testing.T, c *Controller, r *reveal.Reveal) []string {
	t.Helper()
	var steps []string
	for {
		if _, ok := r.Next(); !ok {
			return steps
		}
		msg, found := c.Messages().Get(r.ID())
		require.True(t, found)
		steps = append(steps, msg.Content)
	}
}

// =============================================================================
// END TO END
// =============================================================================

func TestSubmit_EndToEndOverHTTP(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/prompt/add", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("historyId"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"promptId":"m1","answer":"hi there","historyDTO":{"historyId":"t1","title":"hello"}}`)
	}))
	defer server.Close()

	client := api.NewClient(server.URL).WithLogger(logging.Discard())
	c, threads, messages := newTestController(client)

	r, err := c.Submit(context.Background(), Draft{Text: "hello"})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, int32(1), requests.Load())

	// Thread materialized and selected.
	assert.Equal(t, "t1", threads.SelectedID())
	assert.Equal(t, []model.Thread{{ID: "t1", Title: "hello"}}, threads.List())

	// User turn delivered, bot turn empty until revealed.
	msgs := messages.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, model.StatusDelivered, msgs[0].Status)
	assert.Equal(t, model.RoleBot, msgs[1].Role)
	assert.Equal(t, "m1", msgs[1].ID)
	assert.Equal(t, "", msgs[1].Content)

	steps := drain(t, c, r)
	assert.Equal(t, []string{"h", "hi", "hi ", "hi t", "hi th", "hi the", "hi ther", "hi there"}, steps)
	assert.False(t, c.Submitting())
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_ValidationSendsNothing(t *testing.T) {
	b := &fakeBackend{}
	c, _, messages := newTestController(b)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Submit(context.Background(), Draft{Text: text})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.True(t, IsValidation(err))
	}
	assert.Equal(t, 0, messages.Len())
	assert.Equal(t, 0, b.callCount())
	assert.False(t, c.Submitting())
}

func TestSubmit_ImageOnlyIsValid(t *testing.T) {
	b := &fakeBackend{result: &api.PromptResult{PromptID: "p1", Answer: "a cat", Thread: &model.Thread{ID: "t1"}}}
	c, _, messages := newTestController(b)

	img, err := attach.FromBytes("cat.png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), Draft{Image: img})
	require.NoError(t, err)

	user := messages.List()[0]
	assert.True(t, user.HasImage())
	assert.Contains(t, user.ImageURL, "data:image/png;base64,")
}

func TestSubmit_OptimisticAppendBeforeNetwork(t *testing.T) {
	b := &fakeBackend{result: &api.PromptResult{PromptID: "p1", Answer: "ok"}}
	c, threads, messages := newTestController(b)
	threads.Add(model.Thread{ID: "t1"})
	threads.Select("t1")

	s, err := c.BeginSubmit(Draft{Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, "t1", s.ThreadID)
	assert.Equal(t, 0, b.callCount())

	msgs := messages.List()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.StatusPending, msgs[0].Status)
	assert.True(t, c.Submitting())

	_, err = c.BeginSubmit(Draft{Text: "another"})
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	res, err := c.Send(context.Background(), s)
	require.NoError(t, err)
	_, err = c.CompleteSubmit(s, res, nil)
	require.NoError(t, err)

	assert.Equal(t, "t1", b.lastAdd)
	assert.Equal(t, "question", b.addedText)
	assert.Equal(t, "t1", threads.SelectedID())
	assert.Equal(t, 1, threads.Len())
}

func TestSubmit_FailureMarksUserTurn(t *testing.T) {
	b := &fakeBackend{addErr: &api.Error{Op: "submit prompt", Status: 500, Message: "boom"}}
	c, threads, messages := newTestController(b)

	r, err := c.Submit(context.Background(), Draft{Text: "hello"})
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, api.IsNetworkError(err))

	msgs := messages.List()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.StatusFailed, msgs[0].Status)
	assert.Error(t, msgs[0].Err)
	assert.Equal(t, 0, threads.Len())
	assert.False(t, c.Submitting())
}

func TestSubmit_ThreadSwitchDuringFlight(t *testing.T) {
	b := &fakeBackend{
		result:  &api.PromptResult{PromptID: "m1", Answer: "late", Thread: &model.Thread{ID: "new", Title: "q"}},
		prompts: map[string][]model.PromptRecord{},
	}
	c, threads, messages := newTestController(b)
	threads.Add(model.Thread{ID: "old"})

	s, err := c.BeginSubmit(Draft{Text: "q"})
	require.NoError(t, err)

	// User moves to another thread while the answer is pending.
	c.SelectThread("old")

	res, err := c.Send(context.Background(), s)
	require.NoError(t, err)
	r, err := c.CompleteSubmit(s, res, nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	assert.Equal(t, "old", threads.SelectedID())
	_, ok := threads.Get("new")
	assert.True(t, ok, "new thread should still be registered")
	assert.Equal(t, 0, messages.Len())
}

func TestSubmit_WaitsForHistory(t *testing.T) {
	b := &fakeBackend{result: &api.PromptResult{PromptID: "m2", Answer: "new answer"}}
	c, threads, messages := newTestController(b)
	threads.Add(model.Thread{ID: "t1"})

	ticket := c.SelectThread("t1")

	// The history has not arrived: the prompt is refused untouched.
	_, err := c.BeginSubmit(Draft{Text: "new question"})
	assert.ErrorIs(t, err, ErrThreadLoading)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, messages.Len())
	assert.Zero(t, b.callCount())

	require.NoError(t, c.ApplyHistory(ticket, []model.PromptRecord{{PromptID: "p1", Prompt: "old", Answer: "old answer"}}, nil))

	s, err := c.BeginSubmit(Draft{Text: "new question"})
	require.NoError(t, err)
	res, err := c.Send(context.Background(), s)
	require.NoError(t, err)
	r, err := c.CompleteSubmit(s, res, nil)
	require.NoError(t, err)
	require.NotNil(t, r)
	r.Finish()

	msgs := messages.List()
	require.Len(t, msgs, 4)
	assert.Equal(t, "old", msgs[0].Content)
	assert.Equal(t, "new question", msgs[2].Content)
	assert.Equal(t, model.StatusDelivered, msgs[2].Status)
	assert.Equal(t, "new answer", msgs[3].Content)
	assert.Equal(t, "t1", b.lastAdd)
}

func TestSubmit_AcceptedAfterFailedHistory(t *testing.T) {
	tests := []struct {
		name  string
		apply func(c *Controller, ticket SyncTicket)
	}{
		{"fetch failed", func(c *Controller, ticket SyncTicket) {
			_ = c.ApplyHistory(ticket, nil, errors.New("connection refused"))
		}},
		{"new thread", func(c *Controller, ticket SyncTicket) {
			c.NewThread()
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, threads, _ := newTestController(&fakeBackend{})
			threads.Add(model.Thread{ID: "t1"})

			tc.apply(c, c.SelectThread("t1"))
			_, err := c.BeginSubmit(Draft{Text: "q"})
			assert.NoError(t, err)
		})
	}
}

func TestSubmit_AuthExpiry(t *testing.T) {
	b := &fakeBackend{addErr: &api.Error{Op: "submit prompt", Status: http.StatusUnauthorized}}
	c, threads, _ := newTestController(b)
	threads.Add(model.Thread{ID: "t1"})

	var resets atomic.Int32
	c.WithSessionReset(func() error {
		resets.Add(1)
		return nil
	})

	_, err := c.Submit(context.Background(), Draft{Text: "hello"})
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))

	assert.True(t, c.HandleError(err))
	assert.Equal(t, int32(1), resets.Load())
	assert.Equal(t, 0, threads.Len())
	assert.Equal(t, 0, c.Messages().Len())

	assert.False(t, c.HandleError(errors.New("other")))
}

// =============================================================================
// HISTORY SYNC
// =============================================================================

func TestSyncThread_ReplacesMessages(t *testing.T) {
	b := &fakeBackend{prompts: map[string][]model.PromptRecord{
		"t1": {
			{PromptID: "p1", Prompt: "q1", Answer: "a1"},
			{PromptID: "p2", Prompt: "q2", Photo: "https://img/x.png", Answer: "a2"},
		},
	}}
	c, threads, messages := newTestController(b)
	threads.Add(model.Thread{ID: "t1"})

	require.NoError(t, c.SyncThread(context.Background(), "t1"))
	msgs := messages.List()
	require.Len(t, msgs, 4)
	assert.Equal(t, "q1", msgs[0].Content)
	assert.Equal(t, "p1", msgs[1].ID)
	assert.Equal(t, "https://img/x.png", msgs[2].ImageURL)
	assert.Equal(t, "a2", msgs[3].Content)
}

func TestSelectThread_ClearsBeforeFetch(t *testing.T) {
	c, _, messages := newTestController(&fakeBackend{})
	messages.Append(model.NewUserMessage("stale", ""))

	ticket := c.SelectThread("t2")
	assert.Equal(t, 0, messages.Len())
	assert.Equal(t, "t2", ticket.ThreadID)
}

func TestApplyHistory_StaleResultDiscarded(t *testing.T) {
	c, _, messages := newTestController(&fakeBackend{})

	a := c.SelectThread("A")
	b := c.SelectThread("B")

	// B resolves first, then A's late answer arrives.
	require.NoError(t, c.ApplyHistory(b, []model.PromptRecord{{Prompt: "from B", Answer: "b"}}, nil))
	err := c.ApplyHistory(a, []model.PromptRecord{{Prompt: "from A", Answer: "a"}}, nil)
	assert.ErrorIs(t, err, ErrStaleSync)

	msgs := messages.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, "from B", msgs[0].Content)
}

func TestApplyHistory_FailureLeavesEmpty(t *testing.T) {
	c, _, messages := newTestController(&fakeBackend{})
	ticket := c.SelectThread("A")

	err := c.ApplyHistory(ticket, nil, errors.New("connection refused"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStaleSync)
	assert.Equal(t, 0, messages.Len())
}

func TestFetchHistory_CanceledBySelection(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := api.NewClient(server.URL).WithLogger(logging.Discard())
	c, _, _ := newTestController(client)

	ticket := c.SelectThread("A")
	done := make(chan error, 1)
	go func() {
		_, err := c.FetchHistory(context.Background(), ticket)
		done <- err
	}()

	<-started
	c.SelectThread("B")

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("fetch was not canceled by the new selection")
	}
}

func TestRefreshThreads(t *testing.T) {
	b := &fakeBackend{threads: []model.Thread{{ID: "t1"}, {ID: "t2"}}}
	c, threads, messages := newTestController(b)

	require.NoError(t, c.RefreshThreads(context.Background()))
	assert.Equal(t, 2, threads.Len())

	c.SelectThread("t2")
	messages.Append(model.NewBotMessage("x", "kept"))

	b.mu.Lock()
	b.threads = []model.Thread{{ID: "t2"}, {ID: "t3"}}
	b.mu.Unlock()
	require.NoError(t, c.RefreshThreads(context.Background()))
	assert.Equal(t, "t2", threads.SelectedID())
	assert.Equal(t, 1, messages.Len())

	b.mu.Lock()
	b.threads = []model.Thread{{ID: "t3"}}
	b.mu.Unlock()
	require.NoError(t, c.RefreshThreads(context.Background()))
	assert.Equal(t, "", threads.SelectedID())
	assert.Equal(t, 0, messages.Len())
}

// =============================================================================
// DELETION
// =============================================================================

func TestDeleteThread(t *testing.T) {
	tests := []struct {
		name         string
		selected     string
		deleteID     string
		wantSelected bool
		wantMessages int
	}{
		{"selected thread", "t1", "t1", true, 0},
		{"other thread", "t1", "t2", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{deleteErr: errors.New("backend down")}
			c, threads, messages := newTestController(b)
			threads.Add(model.Thread{ID: "t1"})
			threads.Add(model.Thread{ID: "t2"})
			c.SelectThread(tt.selected)
			messages.Append(model.NewUserMessage("hi", ""))

			got := c.DeleteThread(tt.deleteID)
			assert.Equal(t, tt.wantSelected, got)
			_, exists := threads.Get(tt.deleteID)
			assert.False(t, exists)
			assert.Equal(t, tt.wantMessages, messages.Len())

			// Local removal happens before, and survives, the backend failure.
			assert.Equal(t, 0, b.callCount())
			assert.Error(t, c.ConfirmDelete(context.Background(), tt.deleteID))
			_, exists = threads.Get(tt.deleteID)
			assert.False(t, exists)
		})
	}
}

func TestDeleteThread_CancelsReveal(t *testing.T) {
	b := &fakeBackend{result: &api.PromptResult{PromptID: "m1", Answer: "long answer", Thread: &model.Thread{ID: "t1"}}}
	c, _, _ := newTestController(b)

	r, err := c.Submit(context.Background(), Draft{Text: "q"})
	require.NoError(t, err)
	_, ok := r.Next()
	require.True(t, ok)

	assert.True(t, c.DeleteThread("t1"))
	_, ok = r.Next()
	assert.False(t, ok)
	assert.True(t, r.Canceled())
}

// =============================================================================
// SESSION
// =============================================================================

func TestLogout_ResetsEvenWhenBackendFails(t *testing.T) {
	b := &fakeBackend{logoutErr: errors.New("offline")}
	c, threads, messages := newTestController(b)
	threads.Add(model.Thread{ID: "t1"})
	c.SelectThread("t1")
	messages.Append(model.NewUserMessage("hi", ""))

	var reset bool
	c.WithSessionReset(func() error {
		reset = true
		return nil
	})

	err := c.Logout(context.Background())
	assert.Error(t, err)
	assert.True(t, reset)
	assert.Equal(t, 0, threads.Len())
	assert.Equal(t, "", threads.SelectedID())
	assert.Equal(t, 0, messages.Len())
}

func TestSubmit_AnswerAfterResetIgnored(t *testing.T) {
	b := &fakeBackend{result: &api.PromptResult{PromptID: "m1", Answer: "a", Thread: &model.Thread{ID: "t1"}}}
	c, threads, messages := newTestController(b)

	s, err := c.BeginSubmit(Draft{Text: "q"})
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	res, err := c.Send(context.Background(), s)
	require.NoError(t, err)
	r, err := c.CompleteSubmit(s, res, nil)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 0, threads.Len())
	assert.Equal(t, 0, messages.Len())
}
