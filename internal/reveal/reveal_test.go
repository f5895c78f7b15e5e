// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkamji/weasel-tui/internal/model"
	"github.com/kkamji/weasel-tui/internal/store"
)

// recordingStore wraps a MessageStore and records every content update.
type recordingStore struct {
	*store.MessageStore
	updates []string
}

func (s *recordingStore) UpdateContent(id, content string) bool {
	ok := s.MessageStore.UpdateContent(id, content)
	if ok {
		s.updates = append(s.updates, content)
	}
	return ok
}

func newTarget(t *testing.T, id string) *recordingStore {
	t.Helper()
	s := &recordingStore{MessageStore: store.NewMessageStore()}
	s.Append(model.NewBotMessage(id, ""))
	return s
}

func drain(r *Reveal) int {
	n := 0
	for {
		if _, ok := r.Next(); !ok {
			return n
		}
		n++
	}
}

// =============================================================================
// STEP COUNT TESTS
// =============================================================================

func TestReveal_NUnitsProduceNUpdates(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		units int
	}{
		{"ascii", "hi there", 8},
		{"single", "x", 1},
		{"hangul", "안녕", 2},
		{"emoji with modifier", "👍🏽ok", 3},
		{"combining mark", "é", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := newTarget(t, "m1")
			r := New(target, "m1", tc.text)
			require.Equal(t, tc.units, r.Len())

			assert.Equal(t, tc.units, drain(r))
			require.Len(t, target.updates, tc.units)
			assert.Equal(t, r.Text(), target.updates[len(target.updates)-1])
			for i := 1; i < len(target.updates); i++ {
				assert.True(t, strings.HasPrefix(target.updates[i], target.updates[i-1]),
					"update %d does not extend update %d", i, i-1)
			}
			assert.True(t, r.Done())
			assert.False(t, r.Canceled())
		})
	}
}

func TestReveal_EmptyTextProducesNoUpdates(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "")

	assert.True(t, r.Done())
	assert.Zero(t, drain(r))
	assert.Empty(t, target.updates)
	assert.Equal(t, 1.0, r.Progress())
}

func TestReveal_HelloWorldSequence(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "hi there")
	drain(r)

	want := []string{"h", "hi", "hi ", "hi t", "hi th", "hi the", "hi ther", "hi there"}
	assert.Equal(t, want, target.updates)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestReveal_SelfCancelsOnClear(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "abcdef")

	_, ok := r.Next()
	require.True(t, ok)
	_, ok = r.Next()
	require.True(t, ok)

	target.Clear()
	target.Append(model.NewBotMessage("m1", "fresh"))

	_, ok = r.Next()
	assert.False(t, ok, "reveal must stop after the store was cleared")
	assert.True(t, r.Canceled())
	assert.Len(t, target.updates, 2)

	m, _ := target.Get("m1")
	assert.Equal(t, "fresh", m.Content, "a new message with the same ID is not touched")
}

func TestReveal_SelfCancelsWhenMessageMissing(t *testing.T) {
	target := &recordingStore{MessageStore: store.NewMessageStore()}
	r := New(target, "ghost", "abc")

	_, ok := r.Next()
	assert.False(t, ok)
	assert.True(t, r.Canceled())
	assert.Empty(t, target.updates)
}

func TestReveal_CancelStopsFurtherUpdates(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "abc")
	r.Next()
	r.Cancel()

	assert.Zero(t, drain(r))
	assert.False(t, r.Finish())
	assert.Equal(t, []string{"a"}, target.updates)
}

// =============================================================================
// MANAGER TESTS
// =============================================================================

func TestManager_StartFastForwardsPrevious(t *testing.T) {
	target := newTarget(t, "m1")
	target.Append(model.NewBotMessage("m2", ""))
	mgr := NewManager()

	first := New(target, "m1", "first answer")
	mgr.Start(first)
	first.Next()

	second := New(target, "m2", "second")
	mgr.Start(second)

	m1, _ := target.Get("m1")
	assert.Equal(t, "first answer", m1.Content)
	assert.True(t, first.Done())
	assert.True(t, mgr.IsActive(second))
	assert.False(t, mgr.IsActive(first))
}

func TestManager_CancelAll(t *testing.T) {
	target := newTarget(t, "m1")
	mgr := NewManager()
	r := New(target, "m1", "abc")
	mgr.Start(r)

	mgr.CancelAll()
	assert.Nil(t, mgr.Active())
	assert.True(t, r.Canceled())
}

func TestManager_SkipActive(t *testing.T) {
	target := newTarget(t, "m1")
	mgr := NewManager()
	mgr.Start(New(target, "m1", "abc"))

	assert.True(t, mgr.SkipActive())
	m, _ := target.Get("m1")
	assert.Equal(t, "abc", m.Content)
	assert.False(t, mgr.SkipActive())
}

// =============================================================================
// DRIVER TESTS
// =============================================================================

func TestRun_WritesEveryUnit(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "héllo")

	var got strings.Builder
	err := Run(context.Background(), r, time.Millisecond, func(u string) {
		got.WriteString(u)
	})
	require.NoError(t, err)
	assert.Equal(t, "héllo", got.String())
	assert.Len(t, target.updates, 5)
}

func TestRun_ReportsCancellation(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "abcdef")

	err := Run(context.Background(), r, time.Millisecond, func(string) {
		target.Clear()
	})
	assert.True(t, errors.Is(err, ErrCanceled))
}

func TestRun_ContextCancel(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", strings.Repeat("x", 1000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, r, time.Hour, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, r.Canceled())
}

func TestAdvance_EmitsDoneAfterLastUnit(t *testing.T) {
	target := newTarget(t, "m1")
	r := New(target, "m1", "a")

	cmd := Advance(TickMsg{Reveal: r, Interval: time.Millisecond})
	require.NotNil(t, cmd)
	done, ok := cmd().(DoneMsg)
	require.True(t, ok)
	assert.False(t, done.Canceled)
	assert.Equal(t, []string{"a"}, target.updates)
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, time.Second/60, FrameInterval(0))
	assert.Equal(t, time.Second/30, FrameInterval(30))
}
