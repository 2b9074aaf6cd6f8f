package internal

import (
	"encoding/json"
	"strings"
	"time"
)

// Author is the resolved fragment author. The raw store encodes authors as
// loosely-typed ints (1=user, 2=assistant); normalization resolves them once
// into this closed variant.
type Author int

const (
	AuthorUnknown Author = iota
	AuthorUser
	AuthorAgent
)

func (a Author) String() string {
	switch a {
	case AuthorUser:
		return "user"
	case AuthorAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// Fragment is a normalized bubble: author resolved, text collapsed into one
// canonical field, timestamp always set (synthetic when the store omitted it).
type Fragment struct {
	ID              string
	SessionID       string
	Author          Author
	Text            string
	Reasoning       *ThinkingBlock
	ReasoningBlocks []ThinkingBlock
	Tool            *ToolInvocation
	Usage           *TokenCount
	Timestamp       time.Time
	Synthetic       bool // timestamp was gap-filled, not read from the store
}

// syntheticStep spaces gap-filled timestamps so ordering survives
// millisecond-precision storage.
const syntheticStep = time.Second

// NormalizeFragments converts raw bubbles into Fragments, in order. Missing
// timestamps are filled with monotonic synthetic values seeded from the
// session's createdAt; a stored timestamp that would run backwards is bumped
// just past its predecessor so fragment order always matches session order.
func NormalizeFragments(composer *RawComposer, bubbles []*RawBubble) []Fragment {
	fragments := make([]Fragment, 0, len(bubbles))

	prev := composer.GetCreatedAt()
	if prev.IsZero() {
		prev = time.Now().Add(-time.Duration(len(bubbles)) * syntheticStep)
	}

	for _, bubble := range bubbles {
		frag := Fragment{
			ID:              bubble.BubbleID,
			SessionID:       composer.ComposerID,
			Author:          resolveAuthor(bubble.Type),
			Text:            resolveText(bubble),
			Reasoning:       bubble.Thinking,
			ReasoningBlocks: bubble.AllThinkingBlocks,
			Tool:            bubble.ToolFormerData,
			Usage:           bubble.TokenCount,
		}

		if bubble.Timestamp > 0 {
			frag.Timestamp = time.UnixMilli(bubble.Timestamp)
			if !frag.Timestamp.After(prev) {
				frag.Timestamp = prev.Add(time.Millisecond)
			}
		} else {
			frag.Timestamp = prev.Add(syntheticStep)
			frag.Synthetic = true
		}
		prev = frag.Timestamp

		fragments = append(fragments, frag)
	}

	return fragments
}

func resolveAuthor(rawType int) Author {
	switch rawType {
	case 1:
		return AuthorUser
	case 2:
		return AuthorAgent
	default:
		return AuthorUnknown
	}
}

// resolveText collapses the store's text field fallback chain (text, then
// richText extraction, then rawText) into one canonical value.
func resolveText(bubble *RawBubble) string {
	if bubble.Text != "" {
		return bubble.Text
	}
	if bubble.RichText != "" {
		if text := extractRichText(bubble.RichText); text != "" {
			return text
		}
	}
	return bubble.RawText
}

// richTextNode is the Lexical editor JSON Cursor stores in richText fields.
type richTextNode struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Children []richTextNode `json:"children,omitempty"`
}

// extractRichText pulls the plain text out of a richText JSON blob. Returns
// "" when the blob is malformed or carries no text nodes.
func extractRichText(richTextJSON string) string {
	var doc struct {
		Root richTextNode `json:"root"`
	}
	if err := json.Unmarshal([]byte(richTextJSON), &doc); err != nil {
		return ""
	}

	var sb strings.Builder
	collectRichText(doc.Root, &sb)
	return strings.TrimSpace(sb.String())
}

func collectRichText(node richTextNode, sb *strings.Builder) {
	if node.Type == "text" && node.Text != "" {
		sb.WriteString(node.Text)
	}
	if node.Type == "linebreak" || node.Type == "paragraph" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
	}
	for _, child := range node.Children {
		collectRichText(child, sb)
	}
}
