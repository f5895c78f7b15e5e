// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/kkamji/weasel-tui/internal/model"
)

// =============================================================================
// CAPABILITY INTERFACES
// =============================================================================

// ThreadReader is the read-only view of the thread list.
type ThreadReader interface {
	List() []model.Thread
	Get(id string) (model.Thread, bool)
	SelectedID() string
}

// ThreadWriter mutates the thread list and the selection.
type ThreadWriter interface {
	Select(id string)
	ClearSelection()
	Add(thread model.Thread)
	Remove(id string) bool
	Replace(threads []model.Thread)
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore holds the ordered thread list and the selected thread ID.
// An empty selected ID means no thread is selected.
//
// The store does no I/O and does not keep the Message Store consistent with
// the selection; callers orchestrate that.
type SessionStore struct {
	mu sync.RWMutex

	threads  []model.Thread
	selected string
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// List returns a copy of the threads in display order.
func (s *SessionStore) List() []model.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Thread, len(s.threads))
	copy(out, s.threads)
	return out
}

// Len returns the number of threads.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

// Get returns the thread with the given ID.
func (s *SessionStore) Get(id string) (model.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.threads[i], true
	}
	return model.Thread{}, false
}

// SelectedID returns the selected thread ID, or "" when none is selected.
func (s *SessionStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Select marks id as the selected thread. Selecting an ID that is not in
// the list is allowed: a freshly materialized thread is selected in the
// same step it is added.
func (s *SessionStore) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

// ClearSelection deselects the current thread.
func (s *SessionStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Add appends a thread. A thread whose ID is already present replaces the
// existing entry in place.
func (s *SessionStore) Add(thread model.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(thread.ID); i >= 0 {
		s.threads[i] = thread
		return
	}
	s.threads = append(s.threads, thread)
}

// Remove drops the thread with the given ID and clears the selection if it
// pointed at it. It reports whether a thread was removed.
func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.threads = append(s.threads[:i:i], s.threads[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	return true
}

// Replace swaps in a freshly fetched thread list. The selection is kept
// only if the selected thread is still present.
func (s *SessionStore) Replace(threads []model.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make([]model.Thread, 0, len(threads))
	seen := make(map[string]struct{}, len(threads))
	for _, t := range threads {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		s.threads = append(s.threads, t)
	}
	if s.selected != "" && s.indexLocked(s.selected) < 0 {
		s.selected = ""
	}
}

// Reset drops every thread and the selection.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = nil
	s.selected = ""
}

// indexLocked returns the index of id or -1. Caller must hold mu.
func (s *SessionStore) indexLocked(id string) int {
	for i, t := range s.threads {
		if t.ID == id {
			return i
		}
	}
	return -1
}
