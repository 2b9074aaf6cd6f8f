package internal

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Trace is the normalized record for one conversational turn, in the shape
// the backend's traces batch endpoint accepts.
type Trace struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ProjectName string         `json:"project_name,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output"`
	Tags        []string       `json:"tags,omitempty"`
	ThreadID    string         `json:"thread_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Span is one child record per sub-event of a turn.
type Span struct {
	ID          string         `json:"id"`
	TraceID     string         `json:"trace_id"`
	ProjectName string         `json:"project_name,omitempty"`
	Type        string         `json:"type"` // "llm", "tool", "general"
	Name        string         `json:"name"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Usage       map[string]int `json:"usage,omitempty"`
	Model       string         `json:"model,omitempty"`
	Provider    string         `json:"provider,omitempty"`
}

// TraceRecord bundles a trace with its child spans plus the bookkeeping the
// orchestrator needs to advance cursors after upload.
type TraceRecord struct {
	Trace     Trace
	Spans     []Span
	SessionID string
	HasUsage  bool
}

// recordIDEntropy backs ULID generation; the monotonic reader is not safe for
// concurrent use, so hand-outs serialize behind the mutex.
var (
	recordIDMu      sync.Mutex
	recordIDEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRecordID returns a ULID derived from the record's start time, so
// records sort chronologically at the backend without a sequence service.
func NewRecordID(t time.Time) string {
	recordIDMu.Lock()
	defer recordIDMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), recordIDEntropy).String()
}

// TraceBuilder maps completed turns into trace records.
type TraceBuilder struct {
	ProjectName     string
	FreshnessWindow time.Duration
	Git             *GitInfo // repo/branch context, nil when unavailable
	Now             func() time.Time
}

// NewTraceBuilder creates a builder with the given project and freshness
// window. Git metadata is optional.
func NewTraceBuilder(projectName string, freshness time.Duration, git *GitInfo) *TraceBuilder {
	return &TraceBuilder{
		ProjectName:     projectName,
		FreshnessWindow: freshness,
		Git:             git,
		Now:             time.Now,
	}
}

// Build converts one completed turn into a TraceRecord. It returns nil when
// the turn resolves to empty input or output after extraction; such turns
// are dropped, not uploaded, though the caller still advances the cursor
// past them so they are never retried indefinitely.
func (b *TraceBuilder) Build(session *RawComposer, turn *Turn) *TraceRecord {
	input := joinUserText(turn)

	var events []SubEvent
	for _, frag := range turn.Agent {
		fragEvents, _ := ExtractSubEvents(frag)
		events = append(events, fragEvents...)
	}

	output := joinTextEvents(events)
	if input == "" || output == "" {
		return nil
	}

	startTime := turn.User[0].Timestamp
	endTime := turn.LastFragment().Timestamp

	trace := Trace{
		ID:          NewRecordID(startTime),
		Name:        traceName(session),
		ProjectName: b.ProjectName,
		StartTime:   startTime,
		EndTime:     endTime,
		Input:       map[string]any{"input": input},
		Output:      map[string]any{"output": output},
		ThreadID:    turn.SessionID,
		Tags:        b.tags(session),
		Metadata:    b.metadata(session),
	}

	record := &TraceRecord{
		Trace:     trace,
		SessionID: turn.SessionID,
	}

	for _, event := range events {
		span := b.buildSpan(trace.ID, session, event)
		if span.Usage != nil {
			record.HasUsage = true
		}
		record.Spans = append(record.Spans, span)
	}

	return record
}

func (b *TraceBuilder) buildSpan(traceID string, session *RawComposer, event SubEvent) Span {
	span := Span{
		ID:          NewRecordID(event.Start),
		TraceID:     traceID,
		ProjectName: b.ProjectName,
		StartTime:   event.Start,
		EndTime:     event.End,
	}

	switch event.Kind {
	case SubEventReasoning:
		span.Type = "general"
		span.Name = "reasoning"
	case SubEventToolCall:
		span.Type = "tool"
		span.Name = event.Name
		if span.Name == "" {
			span.Name = "tool"
		}
	case SubEventText:
		span.Type = "llm"
		span.Name = "completion"
		span.Model = session.ModelName
	}

	if event.Input != nil {
		span.Input = map[string]any{"input": event.Input}
	}
	if event.Output != nil {
		span.Output = map[string]any{"output": event.Output}
	}
	if event.Usage != nil {
		span.Usage = map[string]int{
			"prompt_tokens":     event.Usage.InputTokens,
			"completion_tokens": event.Usage.OutputTokens,
			"total_tokens":      event.Usage.Total(),
		}
	}

	return span
}

// tags marks records recent or historical. Recent sessions (created within
// the freshness window) gain environment context; older ones omit it since
// the repo may have moved on since the conversation happened.
func (b *TraceBuilder) tags(session *RawComposer) []string {
	tags := []string{"cursor"}
	if session.ModelName != "" {
		tags = append(tags, session.ModelName)
	}
	if b.recent(session) {
		tags = append(tags, "recent")
		if b.Git != nil && b.Git.Branch != "" {
			tags = append(tags, "branch:"+b.Git.Branch)
		}
	} else {
		tags = append(tags, "historical")
	}
	return tags
}

func (b *TraceBuilder) metadata(session *RawComposer) map[string]any {
	meta := map[string]any{
		"source":     "cursor",
		"session_id": session.ComposerID,
	}
	if session.Name != "" {
		meta["session_name"] = session.Name
	}
	if session.ModelName != "" {
		meta["model"] = session.ModelName
	}
	if b.recent(session) && b.Git != nil {
		if b.Git.Repository != "" {
			meta["repository"] = b.Git.Repository
		}
		if b.Git.Branch != "" {
			meta["branch"] = b.Git.Branch
		}
	}
	return meta
}

func (b *TraceBuilder) recent(session *RawComposer) bool {
	created := session.GetCreatedAt()
	if created.IsZero() {
		return false
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	return now.Sub(created) <= b.FreshnessWindow
}

func traceName(session *RawComposer) string {
	if session.Name != "" {
		return session.Name
	}
	return "cursor-conversation"
}

func joinUserText(turn *Turn) string {
	var parts []string
	for _, frag := range turn.User {
		if text := strings.TrimSpace(frag.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func joinTextEvents(events []SubEvent) string {
	var parts []string
	for _, event := range events {
		if event.Kind != SubEventText {
			continue
		}
		if text, ok := event.Output.(string); ok && text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
