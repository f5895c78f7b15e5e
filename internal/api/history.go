// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/model"
)

// =============================================================================
// THREADS
// =============================================================================

// ListThreads fetches the signed-in member's threads.
func (c *Client) ListThreads(ctx context.Context) ([]model.Thread, error) {
	var dtos []historyDTO
	if err := c.get(ctx, "list threads", "/history/list", &dtos); err != nil {
		return nil, err
	}
	threads := make([]model.Thread, 0, len(dtos))
	for _, d := range dtos {
		threads = append(threads, d.thread())
	}
	return threads, nil
}

// ListPrompts fetches the log of one thread, oldest first. Photo keys are
// resolved to absolute URLs.
func (c *Client) ListPrompts(ctx context.Context, threadID string) ([]model.PromptRecord, error) {
	if threadID == "" {
		return nil, ErrEmptyID
	}
	var dtos []promptRecordDTO
	if err := c.get(ctx, "fetch thread", "/prompt/list/"+url.PathEscape(threadID), &dtos); err != nil {
		return nil, err
	}
	records := make([]model.PromptRecord, 0, len(dtos))
	for _, d := range dtos {
		records = append(records, model.PromptRecord{
			PromptID: string(d.PromptID),
			Prompt:   d.Prompt,
			Photo:    c.ResolveImage(d.Photo),
			Answer:   d.Answer,
		})
	}
	return records, nil
}

// DeleteThread deletes a thread on the backend.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		return ErrEmptyID
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.endpoint("/history/delete/"+url.PathEscape(threadID), nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	_, err = c.do(ctx, "delete thread", req)
	return err
}

// =============================================================================
// PROMPTS
// =============================================================================

// AddPrompt submits a prompt. With an empty threadID the backend creates a
// new thread and returns it in the result; otherwise the prompt is appended
// to threadID. img may be nil.
func (c *Client) AddPrompt(ctx context.Context, threadID, text string, img *attach.Image) (*PromptResult, error) {
	form := newForm()
	form.jsonField("promptDTO", promptDTO{Prompt: text})
	form.image("file", img)

	var query url.Values
	if threadID != "" {
		query = url.Values{"historyId": {threadID}}
	}

	var resp addPromptResponse
	if err := c.sendForm(ctx, "submit prompt", http.MethodPost, c.endpoint("/prompt/add", query), form, &resp); err != nil {
		return nil, err
	}

	result := &PromptResult{
		PromptID: string(resp.PromptID),
		Answer:   resp.Answer,
	}
	if resp.HistoryDTO != nil && resp.HistoryDTO.HistoryID != "" {
		t := resp.HistoryDTO.thread()
		result.Thread = &t
	}
	if threadID == "" && result.Thread == nil {
		return nil, fmt.Errorf("submit prompt: response is missing the new thread")
	}
	return result, nil
}
