// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for threads and messages.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleBot:
		return "Weasel"
	default:
		return string(r)
	}
}

// =============================================================================
// DELIVERY STATUS
// =============================================================================

// DeliveryStatus tracks whether a user turn reached the backend.
type DeliveryStatus int

const (
	StatusDelivered DeliveryStatus = iota
	StatusPending
	StatusFailed
)

// String returns the string representation of the status.
func (s DeliveryStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	default:
		return "delivered"
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in the conversation view.
//
// Content is only mutated for a bot message under reveal. Status is only
// meaningful for user turns; bot turns are always delivered.
type Message struct {
	ID       string `json:"id"`
	Role     Role   `json:"type"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`

	Status DeliveryStatus `json:"-"`
	Err    error          `json:"-"`
}

// NewUserMessage creates an optimistic user turn with a generated ID.
func NewUserMessage(content, imageURL string) Message {
	return Message{
		ID:       generateID(),
		Role:     RoleUser,
		Content:  content,
		ImageURL: imageURL,
		Status:   StatusPending,
	}
}

// NewBotMessage creates a bot turn. An empty id gets a generated one.
func NewBotMessage(id, content string) Message {
	if id == "" {
		id = generateID()
	}
	return Message{
		ID:      id,
		Role:    RoleBot,
		Content: content,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser reports whether the message was sent by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsBot reports whether the message is a bot answer.
func (m Message) IsBot() bool {
	return m.Role == RoleBot
}

// HasImage reports whether the message carries an image reference.
func (m Message) HasImage() bool {
	return m.ImageURL != ""
}

// IsFailed reports whether the turn failed to reach the backend.
func (m Message) IsFailed() bool {
	return m.Status == StatusFailed
}

// Preview returns a single-line preview truncated to maxLen runes.
func (m Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if maxLen <= 3 || len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// generateID creates a client-side message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
