// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread is a conversation thread ("history") as known by the backend.
// Both fields are assigned by the backend and never edited locally.
type Thread struct {
	ID    string `json:"historyId"`
	Title string `json:"title"`
}

// DisplayTitle returns the title, or a placeholder for untitled threads.
func (t Thread) DisplayTitle() string {
	if t.Title == "" {
		return "(untitled)"
	}
	return t.Title
}

// =============================================================================
// PROMPT RECORD
// =============================================================================

// PromptRecord is one entry of a thread's backend log: a prompt, its
// optional photo and the answer the backend produced for it.
type PromptRecord struct {
	PromptID string `json:"promptId,omitempty"`
	Prompt   string `json:"prompt"`
	Photo    string `json:"photo,omitempty"`
	Answer   string `json:"answer"`
}

// Expand converts the record into its user turn followed by its bot turn.
// The bot turn keeps the backend prompt ID when there is one.
func (r PromptRecord) Expand() []Message {
	user := NewUserMessage(r.Prompt, r.Photo)
	user.Status = StatusDelivered
	return []Message{user, NewBotMessage(r.PromptID, r.Answer)}
}

// ExpandRecords expands a thread log, in order, into exactly two messages
// per record.
func ExpandRecords(records []PromptRecord) []Message {
	msgs := make([]Message, 0, len(records)*2)
	for _, r := range records {
		msgs = append(msgs, r.Expand()...)
	}
	return msgs
}
