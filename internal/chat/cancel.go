// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelHolder keeps the cancel function of the newest in-flight fetch.
// Each function is stored with the sequence number of its fetch so an older
// fetch finishing late cannot drop a newer one's cancel.
type cancelHolder struct {
	mu  sync.Mutex
	seq uint64
	fn  context.CancelFunc
}

func newCancelHolder() *cancelHolder {
	return &cancelHolder{}
}

// set stores fn for fetch seq, canceling whatever was stored before.
func (h *cancelHolder) set(seq uint64, fn context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fn != nil {
		h.fn()
	}
	h.seq = seq
	h.fn = fn
}

// release forgets the function of fetch seq if it is still the stored one.
func (h *cancelHolder) release(seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fn != nil && h.seq == seq {
		h.fn = nil
	}
}

// cancel invokes and clears the stored function. Safe to call repeatedly.
func (h *cancelHolder) cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fn != nil {
		h.fn()
		h.fn = nil
	}
}
