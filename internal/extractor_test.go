package internal

import (
	"reflect"
	"testing"
	"time"
)

func TestExtractSubEventsReasoningPriority(t *testing.T) {
	ts := time.UnixMilli(1000)

	t.Run("structured thinking field wins", func(t *testing.T) {
		frag := Fragment{
			Timestamp:       ts,
			Reasoning:       &ThinkingBlock{Text: "structured"},
			ReasoningBlocks: []ThinkingBlock{{Content: "from blocks"}},
			Text:            "<think>inline</think>visible",
		}
		events, _ := ExtractSubEvents(frag)
		reasoning := eventsOfKind(events, SubEventReasoning)
		if len(reasoning) != 1 {
			t.Fatalf("got %d reasoning events, want 1", len(reasoning))
		}
		if reasoning[0].Output != "structured" {
			t.Errorf("reasoning = %v, want structured field", reasoning[0].Output)
		}
		// markup is not stripped when a higher-priority source was used
		text := eventsOfKind(events, SubEventText)
		if len(text) != 1 {
			t.Fatalf("got %d text events, want 1", len(text))
		}
	})

	t.Run("thinking block list second", func(t *testing.T) {
		frag := Fragment{
			Timestamp:       ts,
			ReasoningBlocks: []ThinkingBlock{{Content: "block one"}, {Text: "block two"}, {}},
		}
		events, _ := ExtractSubEvents(frag)
		reasoning := eventsOfKind(events, SubEventReasoning)
		if len(reasoning) != 2 {
			t.Fatalf("got %d reasoning events, want 2 (empty block skipped)", len(reasoning))
		}
		if reasoning[0].Output != "block one" || reasoning[1].Output != "block two" {
			t.Errorf("reasoning = %v, %v", reasoning[0].Output, reasoning[1].Output)
		}
	})

	t.Run("inline markup last and stripped from text", func(t *testing.T) {
		frag := Fragment{
			Timestamp: ts,
			Text:      "before <thinking>hidden plan</thinking> after",
		}
		events, residual := ExtractSubEvents(frag)

		reasoning := eventsOfKind(events, SubEventReasoning)
		if len(reasoning) != 1 || reasoning[0].Output != "hidden plan" {
			t.Fatalf("reasoning events = %+v", reasoning)
		}

		text := eventsOfKind(events, SubEventText)
		if len(text) != 1 {
			t.Fatalf("got %d text events, want 1", len(text))
		}
		if text[0].Output != "before  after" {
			t.Errorf("visible text = %q", text[0].Output)
		}
		if residual != "before  after" {
			t.Errorf("residual = %q", residual)
		}
	})
}

func eventsOfKind(events []SubEvent, kind SubEventKind) []SubEvent {
	var out []SubEvent
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestExtractSubEventsToolCalls(t *testing.T) {
	ts := time.UnixMilli(1000)

	t.Run("params and result parsed as JSON", func(t *testing.T) {
		frag := Fragment{
			Timestamp: ts,
			Tool: &ToolInvocation{
				Name:   "read_file",
				Params: `{"path":"main.go"}`,
				Result: `{"lines":42}`,
			},
		}
		events, _ := ExtractSubEvents(frag)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		event := events[0]
		if event.Kind != SubEventToolCall || event.Name != "read_file" {
			t.Errorf("event = %+v", event)
		}
		wantInput := map[string]any{"path": "main.go"}
		if !reflect.DeepEqual(event.Input, wantInput) {
			t.Errorf("Input = %#v, want %#v", event.Input, wantInput)
		}
	})

	t.Run("malformed JSON falls back to raw string", func(t *testing.T) {
		frag := Fragment{
			Timestamp: ts,
			Tool:      &ToolInvocation{Name: "shell", Params: `{truncated...`, Result: "plain output"},
		}
		events, _ := ExtractSubEvents(frag)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if events[0].Input != `{truncated...` {
			t.Errorf("Input = %#v, want raw string", events[0].Input)
		}
		if events[0].Output != "plain output" {
			t.Errorf("Output = %#v", events[0].Output)
		}
	})

	t.Run("tool field used when name is empty", func(t *testing.T) {
		frag := Fragment{Timestamp: ts, Tool: &ToolInvocation{Tool: "grep"}}
		events, _ := ExtractSubEvents(frag)
		if events[0].Name != "grep" {
			t.Errorf("Name = %q, want grep", events[0].Name)
		}
	})
}

func TestExtractSubEventsUsageOnFirstOnly(t *testing.T) {
	usage := &TokenCount{InputTokens: 10, OutputTokens: 20}
	frag := Fragment{
		Timestamp: time.UnixMilli(1000),
		Reasoning: &ThinkingBlock{Text: "plan"},
		Tool:      &ToolInvocation{Name: "edit"},
		Text:      "done",
		Usage:     usage,
	}

	events, _ := ExtractSubEvents(frag)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Usage != usage {
		t.Error("usage missing from first event")
	}
	for i, event := range events[1:] {
		if event.Usage != nil {
			t.Errorf("event %d carries usage, should be first only", i+1)
		}
	}
}

func TestExtractSubEventsEmptyFragment(t *testing.T) {
	events, _ := ExtractSubEvents(Fragment{Timestamp: time.UnixMilli(1000), Text: "   "})
	if len(events) != 0 {
		t.Errorf("whitespace-only fragment produced %d events", len(events))
	}
}
