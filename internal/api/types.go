// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kkamji/weasel-tui/internal/model"
)

// =============================================================================
// WIRE ID
// =============================================================================

// wireID is an opaque identifier the backend may send as a JSON string or
// number.
type wireID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", data, err)
		}
		*id = wireID(n.String())
	}
	return nil
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// Credentials is the login and registration payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// promptDTO is the JSON part of a prompt submission.
type promptDTO struct {
	Prompt string `json:"prompt"`
}

// passwordDTO is the JSON part of a profile update.
type passwordDTO struct {
	Password string `json:"password"`
}

// historyDTO is a thread as returned by the backend.
type historyDTO struct {
	HistoryID wireID `json:"historyId"`
	Title     string `json:"title"`
}

func (h historyDTO) thread() model.Thread {
	return model.Thread{ID: string(h.HistoryID), Title: h.Title}
}

// promptRecordDTO is one entry of a thread log.
type promptRecordDTO struct {
	PromptID wireID `json:"promptId"`
	Prompt   string `json:"prompt"`
	Photo    string `json:"photo"`
	Answer   string `json:"answer"`
}

// addPromptResponse is the answer to POST /prompt/add.
type addPromptResponse struct {
	PromptID   wireID      `json:"promptId"`
	Answer     string      `json:"answer"`
	HistoryDTO *historyDTO `json:"historyDTO"`
}

// resultResponse is the envelope of /login and /member/join.
type resultResponse struct {
	ResultCode *int   `json:"resultCode"`
	Msg        string `json:"msg"`
}

// profileResponse is the answer to GET /member/view.
type profileResponse struct {
	ID           wireID `json:"id"`
	Email        string `json:"email"`
	PhotoURL     string `json:"photoUrl"`
	ProfilePhoto string `json:"profilePhoto"`
}

// updateProfileResponse is the answer to PATCH /member/update.
type updateProfileResponse struct {
	PhotoURL string `json:"photoUrl"`
}

// PromptResult is the backend's answer to a prompt.
type PromptResult struct {
	PromptID string
	Answer   string

	// Thread is set when the submission created a new thread.
	Thread *model.Thread
}

// Profile is the signed-in member.
type Profile struct {
	ID       string
	Email    string
	PhotoURL string
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeJSON unmarshals body, treating an empty body as an error.
func decodeJSON(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(body, v)
}

// resolveImage turns a bare image key into an absolute URL. Absolute and
// data URLs are returned unchanged.
func resolveImage(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return ref
	}
	if base == "" {
		return ref
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
}
