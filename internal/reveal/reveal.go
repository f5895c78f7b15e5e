// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"errors"
	"strings"
	"sync"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/kkamji/weasel-tui/internal/store"
)

// ErrCanceled is returned by Run when the reveal stopped before the full
// text was written.
var ErrCanceled = errors.New("reveal canceled")

// =============================================================================
// REVEAL
// =============================================================================

// Reveal writes a message's full text into its store one unit at a time.
//
// Each successful Next call performs exactly one content update, so a text
// of N units produces N updates and the last one equals the full text.
type Reveal struct {
	mu sync.Mutex

	target store.ContentTarget
	id     string
	epoch  uint64

	units    []string
	written  int
	shown    strings.Builder
	canceled bool
}

// New prepares a reveal of text into the message id of target. The target's
// current epoch is captured; the reveal cancels itself once it changes.
func New(target store.ContentTarget, id, text string) *Reveal {
	return &Reveal{
		target: target,
		id:     id,
		epoch:  target.Epoch(),
		units:  Split(text),
	}
}

// Split normalizes text to NFC and splits it into grapheme clusters.
func Split(text string) []string {
	text = norm.NFC.String(text)
	if text == "" {
		return nil
	}
	units := make([]string, 0, len(text))
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		units = append(units, g.Str())
	}
	return units
}

// ID returns the target message ID.
func (r *Reveal) ID() string {
	return r.id
}

// Len returns the number of units in the full text.
func (r *Reveal) Len() int {
	return len(r.units)
}

// Text returns the full (normalized) text being revealed.
func (r *Reveal) Text() string {
	return strings.Join(r.units, "")
}

// Written returns how many units have been written so far.
func (r *Reveal) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Progress returns the written fraction in [0, 1].
func (r *Reveal) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.units) == 0 {
		return 1
	}
	return float64(r.written) / float64(len(r.units))
}

// Done reports whether the reveal has nothing left to do, either because
// every unit was written or because it was canceled.
func (r *Reveal) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled || r.written >= len(r.units)
}

// Canceled reports whether the reveal was canceled.
func (r *Reveal) Canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// Cancel stops the reveal. Content already written stays as is.
func (r *Reveal) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = true
}

// Next writes the next unit and returns it. ok is false when nothing was
// written: the reveal is finished, was canceled, or just noticed that its
// target went away (and canceled itself).
func (r *Reveal) Next() (unit string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.canceled || r.written >= len(r.units) {
		return "", false
	}
	if !r.targetLiveLocked() {
		r.canceled = true
		return "", false
	}

	unit = r.units[r.written]
	r.shown.WriteString(unit)
	r.written++
	if !r.target.UpdateContent(r.id, r.shown.String()) {
		r.canceled = true
		return "", false
	}
	return unit, true
}

// Finish writes the full text in one update and marks the reveal done.
// It does nothing when the reveal is canceled, finished or its target is
// gone. It reports whether an update was made.
func (r *Reveal) Finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.canceled || r.written >= len(r.units) {
		return false
	}
	if !r.targetLiveLocked() {
		r.canceled = true
		return false
	}
	for _, u := range r.units[r.written:] {
		r.shown.WriteString(u)
	}
	r.written = len(r.units)
	return r.target.UpdateContent(r.id, r.shown.String())
}

// targetLiveLocked checks the epoch and message existence. Caller must hold mu.
func (r *Reveal) targetLiveLocked() bool {
	return r.target.Epoch() == r.epoch && r.target.Has(r.id)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager keeps at most one reveal active so no two reveals ever target the
// same message.
type Manager struct {
	mu     sync.Mutex
	active *Reveal
}

// NewManager creates an idle manager.
func NewManager() *Manager {
	return &Manager{}
}

// Start makes r the active reveal. A still-running previous reveal is
// fast-forwarded to its full text first.
func (m *Manager) Start(r *Reveal) {
	m.mu.Lock()
	prev := m.active
	m.active = r
	m.mu.Unlock()

	if prev != nil && prev != r {
		prev.Finish()
		prev.Cancel()
	}
}

// Active returns the active reveal, or nil.
func (m *Manager) Active() *Reveal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// IsActive reports whether r is the active reveal.
func (m *Manager) IsActive(r *Reveal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return r != nil && m.active == r
}

// Release forgets r if it is still the active reveal.
func (m *Manager) Release(r *Reveal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == r {
		m.active = nil
	}
}

// SkipActive fast-forwards the active reveal to its full text.
func (m *Manager) SkipActive() bool {
	m.mu.Lock()
	r := m.active
	m.active = nil
	m.mu.Unlock()
	if r == nil {
		return false
	}
	return r.Finish()
}

// CancelAll cancels the active reveal, leaving its content as written.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	r := m.active
	m.active = nil
	m.mu.Unlock()
	if r != nil {
		r.Cancel()
	}
}
