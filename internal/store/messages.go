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

// MessageReader is the read-only view of the conversation.
type MessageReader interface {
	List() []model.Message
	Get(id string) (model.Message, bool)
	Len() int
	Epoch() uint64
}

// MessageWriter mutates the conversation.
type MessageWriter interface {
	ReplaceAll(msgs []model.Message)
	Append(msg model.Message)
	UpdateContent(id, content string) bool
	SetStatus(id string, status model.DeliveryStatus, err error) bool
	Clear()
}

// ContentTarget is what a reveal needs: read the epoch, check the message
// still exists, and write its content.
type ContentTarget interface {
	Epoch() uint64
	Has(id string) bool
	UpdateContent(id, content string) bool
}

// =============================================================================
// MESSAGE STORE
// =============================================================================

// MessageStore is the ordered message list of the selected thread. Order is
// insertion order and the store is the only source of truth for rendering.
type MessageStore struct {
	mu sync.RWMutex

	msgs  []model.Message
	epoch uint64
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// List returns a copy of the messages in order.
func (s *MessageStore) List() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Get returns the message with the given ID.
func (s *MessageStore) Get(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.msgs[i], true
	}
	return model.Message{}, false
}

// Has reports whether a message with the given ID exists.
func (s *MessageStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id) >= 0
}

// Epoch returns the generation of the list. It changes on Clear and
// ReplaceAll, never on Append or in-place updates.
func (s *MessageStore) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// ReplaceAll swaps the whole list.
func (s *MessageStore) ReplaceAll(msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = make([]model.Message, len(msgs))
	copy(s.msgs, msgs)
	s.epoch++
}

// Append adds a message at the end.
func (s *MessageStore) Append(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

// UpdateContent sets the content of the message with the given ID.
// Unknown IDs are a no-op and report false.
func (s *MessageStore) UpdateContent(id, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.msgs[i].Content = content
	return true
}

// SetStatus records the delivery outcome of a user turn.
// Unknown IDs are a no-op and report false.
func (s *MessageStore) SetStatus(id string, status model.DeliveryStatus, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.msgs[i].Status = status
	s.msgs[i].Err = err
	return true
}

// Clear removes every message.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	s.epoch++
}

// indexLocked returns the index of id or -1. Caller must hold mu.
// Searches from the end: the message being revealed is almost always last.
func (s *MessageStore) indexLocked(id string) int {
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].ID == id {
			return i
		}
	}
	return -1
}
