package internal

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// SubEventKind classifies a decomposed piece of an agent fragment.
type SubEventKind string

const (
	SubEventReasoning SubEventKind = "reasoning"
	SubEventToolCall  SubEventKind = "tool_call"
	SubEventText      SubEventKind = "text"
)

// SubEvent is one typed piece extracted from an agent fragment. Input and
// Output hold parsed JSON objects when the payload parses, else the raw
// string. Usage is set on at most one sub-event per fragment.
type SubEvent struct {
	Kind       SubEventKind
	Name       string // tool name for tool calls
	Input      any
	Output     any
	Usage      *TokenCount
	Start, End time.Time
}

// inlineReasoningPattern matches <think>...</think> and <thinking>...</thinking>
// control markup embedded in visible text.
var inlineReasoningPattern = regexp.MustCompile(`(?s)<think(?:ing)?>(.*?)</think(?:ing)?>`)

// ExtractSubEvents decomposes an agent fragment into sub-events. Reasoning is
// resolved by a priority chain: the structured thinking field, else the
// thinking-block list, else inline markup stripped out of the visible text.
// Tool invocations and residual text follow. The fragment's token usage is
// attached to the first sub-event only.
func ExtractSubEvents(frag Fragment) ([]SubEvent, string) {
	var events []SubEvent
	text := frag.Text

	switch {
	case frag.Reasoning != nil && frag.Reasoning.Body() != "":
		events = append(events, reasoningEvent(frag, frag.Reasoning.Body()))
	case len(frag.ReasoningBlocks) > 0:
		events = append(events, ReasoningFromBlocks(frag)...)
	default:
		var inline []SubEvent
		inline, text = ReasoningFromMarkup(frag, text)
		events = append(events, inline...)
	}

	events = append(events, ToolCallEvents(frag)...)

	if visible := strings.TrimSpace(text); visible != "" {
		events = append(events, SubEvent{
			Kind:   SubEventText,
			Output: visible,
			Start:  frag.Timestamp,
			End:    frag.Timestamp,
		})
	}

	if frag.Usage != nil && len(events) > 0 {
		events[0].Usage = frag.Usage
	}

	return events, text
}

// ReasoningFromBlocks yields one reasoning sub-event per structured thinking
// block carrying content.
func ReasoningFromBlocks(frag Fragment) []SubEvent {
	var events []SubEvent
	for _, block := range frag.ReasoningBlocks {
		if body := block.Body(); body != "" {
			events = append(events, reasoningEvent(frag, body))
		}
	}
	return events
}

// ReasoningFromMarkup extracts inline reasoning markup from visible text and
// returns the events plus the text with the markup stripped.
func ReasoningFromMarkup(frag Fragment, text string) ([]SubEvent, string) {
	if text == "" || !strings.Contains(text, "<think") {
		return nil, text
	}

	var events []SubEvent
	for _, match := range inlineReasoningPattern.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(match[1]); body != "" {
			events = append(events, reasoningEvent(frag, body))
		}
	}

	stripped := inlineReasoningPattern.ReplaceAllString(text, "")
	return events, stripped
}

// ToolCallEvents yields one tool-call sub-event per invocation, with params
// and result parsed from their JSON-encoded string fields. Malformed JSON
// falls back to the raw string so a bad payload never loses the call.
func ToolCallEvents(frag Fragment) []SubEvent {
	if frag.Tool == nil {
		return nil
	}

	name := frag.Tool.Name
	if name == "" {
		name = frag.Tool.Tool
	}

	return []SubEvent{{
		Kind:   SubEventToolCall,
		Name:   name,
		Input:  parseJSONOrRaw(frag.Tool.Params),
		Output: parseJSONOrRaw(frag.Tool.Result),
		Start:  frag.Timestamp,
		End:    frag.Timestamp,
	}}
}

func reasoningEvent(frag Fragment, body string) SubEvent {
	return SubEvent{
		Kind:   SubEventReasoning,
		Output: body,
		Start:  frag.Timestamp,
		End:    frag.Timestamp,
	}
}

func parseJSONOrRaw(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
