package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawBubble is one message bubble as stored in cursorDiskKV.
type RawBubble struct {
	BubbleID          string          `json:"bubbleId"`
	SessionID         string          `json:"sessionId"`
	Type              int             `json:"type"` // 1=user, 2=assistant
	Text              string          `json:"text,omitempty"`
	RichText          string          `json:"richText,omitempty"`
	RawText           string          `json:"rawText,omitempty"`
	Thinking          *ThinkingBlock  `json:"thinking,omitempty"`
	AllThinkingBlocks []ThinkingBlock `json:"allThinkingBlocks,omitempty"`
	ToolFormerData    *ToolInvocation `json:"toolFormerData,omitempty"`
	TokenCount        *TokenCount     `json:"tokenCount,omitempty"`
	Timestamp         int64           `json:"timestamp,omitempty"` // unix millis, 0 when absent
}

// ThinkingBlock holds a structured reasoning payload. Older bubbles use
// "text", newer ones "content"; Body resolves whichever is set.
type ThinkingBlock struct {
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

// Body returns the reasoning text regardless of which field carried it.
func (tb ThinkingBlock) Body() string {
	if tb.Text != "" {
		return tb.Text
	}
	return tb.Content
}

// ToolInvocation is the toolFormerData payload attached to assistant bubbles.
// Params and Result are JSON-encoded strings; consumers parse them lazily and
// fall back to the raw string on malformed JSON.
type ToolInvocation struct {
	Name   string `json:"name,omitempty"`
	Tool   string `json:"tool,omitempty"`
	Params string `json:"params,omitempty"`
	Result string `json:"result,omitempty"`
	Status string `json:"status,omitempty"`
}

// TokenCount is the per-bubble token usage reported by Cursor.
type TokenCount struct {
	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`
}

// Total returns input+output tokens.
func (tc TokenCount) Total() int { return tc.InputTokens + tc.OutputTokens }

// RawComposer is a session record from cursorDiskKV (composerData keys).
type RawComposer struct {
	ComposerID                  string               `json:"composerId"`
	Name                        string               `json:"name,omitempty"`
	FullConversationHeadersOnly []ConversationHeader `json:"fullConversationHeadersOnly,omitempty"`
	CreatedAt                   int64                `json:"createdAt,omitempty"`
	LastUpdatedAt               int64                `json:"lastUpdatedAt,omitempty"`
	Status                      string               `json:"status,omitempty"`
	ModelName                   string               `json:"modelName,omitempty"`
}

// ConversationHeader is one entry in the composer's authoritative order list.
type ConversationHeader struct {
	BubbleID string `json:"bubbleId"`
	Type     int    `json:"type"`
}

// Finalized reports whether the conversation is closed and safe to capture
// even inside the settle grace window.
func (rc *RawComposer) Finalized() bool {
	return rc.Status == "completed" || rc.Status == "finalized"
}

// GetCreatedAt converts the millisecond timestamp, zero time when absent.
func (rc *RawComposer) GetCreatedAt() time.Time {
	if rc.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(rc.CreatedAt)
}

// GetLastUpdatedAt falls back to createdAt when the store never recorded an
// update.
func (rc *RawComposer) GetLastUpdatedAt() time.Time {
	if rc.LastUpdatedAt == 0 {
		return rc.GetCreatedAt()
	}
	return time.UnixMilli(rc.LastUpdatedAt)
}

// ParseRawBubble parses a bubbleId:<sessionId>:<bubbleId> row.
func ParseRawBubble(key, value string) (*RawBubble, error) {
	sessionID, bubbleID, err := splitBubbleKey(key)
	if err != nil {
		return nil, err
	}

	var bubble RawBubble
	if err := json.Unmarshal([]byte(value), &bubble); err != nil {
		return nil, &ParseError{Source: "cursorDiskKV", Key: key, Err: err}
	}

	bubble.SessionID = sessionID
	bubble.BubbleID = bubbleID
	return &bubble, nil
}

// ParseRawComposer parses a composerData:<composerId> row.
func ParseRawComposer(key, value string) (*RawComposer, error) {
	id, ok := strings.CutPrefix(key, "composerData:")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid composerData key format: %s", key)
	}

	var composer RawComposer
	if err := json.Unmarshal([]byte(value), &composer); err != nil {
		return nil, &ParseError{Source: "cursorDiskKV", Key: key, Err: err}
	}

	composer.ComposerID = id
	return &composer, nil
}

func splitBubbleKey(key string) (sessionID, bubbleID string, err error) {
	rest, ok := strings.CutPrefix(key, "bubbleId:")
	if !ok {
		return "", "", fmt.Errorf("invalid bubbleId key format: %s", key)
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid bubbleId key format: %s", key)
	}
	return parts[0], parts[1], nil
}
