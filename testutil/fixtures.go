package testutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
)

// BubbleSpec describes one message bubble fixture. Zero-value fields are
// omitted from the stored JSON, matching how Cursor writes sparse bubbles.
type BubbleSpec struct {
	BubbleID  string
	Type      int // 1=user, 2=assistant
	Text      string
	RichText  string
	Thinking  string
	Blocks    []string       // allThinkingBlocks contents
	Tool      map[string]any // toolFormerData payload
	InTokens  int
	OutTokens int
	Timestamp int64 // unix millis
}

// HeaderSpec is one entry of a composer's conversation header list.
type HeaderSpec struct {
	BubbleID string
	Type     int
}

// ComposerSpec describes one session fixture.
type ComposerSpec struct {
	ComposerID    string
	Name          string
	CreatedAt     int64
	LastUpdatedAt int64
	Status        string
	ModelName     string
	Headers       []HeaderSpec
}

// InsertBubble stores a bubble fixture under its bubbleId:<chatId>:<bubbleId>
// key
func InsertBubble(t *testing.T, db *sql.DB, chatID string, spec BubbleSpec) {
	t.Helper()

	bubble := map[string]any{"type": spec.Type}
	if spec.Text != "" {
		bubble["text"] = spec.Text
	}
	if spec.RichText != "" {
		bubble["richText"] = spec.RichText
	}
	if spec.Thinking != "" {
		bubble["thinking"] = map[string]any{"text": spec.Thinking}
	}
	if len(spec.Blocks) > 0 {
		blocks := make([]map[string]any, 0, len(spec.Blocks))
		for _, content := range spec.Blocks {
			blocks = append(blocks, map[string]any{"content": content})
		}
		bubble["allThinkingBlocks"] = blocks
	}
	if spec.Tool != nil {
		bubble["toolFormerData"] = spec.Tool
	}
	if spec.InTokens != 0 || spec.OutTokens != 0 {
		bubble["tokenCount"] = map[string]any{
			"inputTokens":  spec.InTokens,
			"outputTokens": spec.OutTokens,
		}
	}
	if spec.Timestamp != 0 {
		bubble["timestamp"] = spec.Timestamp
	}

	key := fmt.Sprintf("bubbleId:%s:%s", chatID, spec.BubbleID)
	InsertKV(t, db, key, string(JSONMarshal(t, bubble)))
}

// InsertComposer stores a session fixture under its composerData key
func InsertComposer(t *testing.T, db *sql.DB, spec ComposerSpec) {
	t.Helper()

	composer := map[string]any{"composerId": spec.ComposerID}
	if spec.Name != "" {
		composer["name"] = spec.Name
	}
	if spec.CreatedAt != 0 {
		composer["createdAt"] = spec.CreatedAt
	}
	if spec.LastUpdatedAt != 0 {
		composer["lastUpdatedAt"] = spec.LastUpdatedAt
	}
	if spec.Status != "" {
		composer["status"] = spec.Status
	}
	if spec.ModelName != "" {
		composer["modelName"] = spec.ModelName
	}
	if len(spec.Headers) > 0 {
		headers := make([]map[string]any, 0, len(spec.Headers))
		for _, h := range spec.Headers {
			headers = append(headers, map[string]any{"bubbleId": h.BubbleID, "type": h.Type})
		}
		composer["fullConversationHeadersOnly"] = headers
	}

	InsertKV(t, db, "composerData:"+spec.ComposerID, string(JSONMarshal(t, composer)))
}

// JSONMarshal marshals a value to JSON for testing
func JSONMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}
	return data
}

// ToolJSON builds a toolFormerData payload with JSON-encoded params and
// result strings
func ToolJSON(t *testing.T, name string, params, result any) map[string]any {
	t.Helper()
	tool := map[string]any{"name": name, "status": "completed"}
	if params != nil {
		tool["params"] = string(JSONMarshal(t, params))
	}
	if result != nil {
		tool["result"] = string(JSONMarshal(t, result))
	}
	return tool
}
