package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CollectorState guards against overlapping cycles. A trigger that fires
// while a cycle is still running is skipped outright, never queued, so two
// cycles can never race on the same session cursor.
type CollectorState struct {
	mu      sync.Mutex
	running bool
}

func (s *CollectorState) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *CollectorState) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// RecordUploader is the delivery side of the collector. The production
// implementation is Uploader; dry runs substitute one that only logs.
type RecordUploader interface {
	Upload(ctx context.Context, records []*TraceRecord) *UploadOutcome
}

// sessionStore is the read side of the collector, satisfied by Store.
type sessionStore interface {
	ListUpdatedSessions(windowStart, windowEnd time.Time) ([]*RawComposer, error)
	LoadFragments(composer *RawComposer) ([]*RawBubble, error)
}

// openSQLiteStore opens the production store over state.vscdb.
func openSQLiteStore(path string) (sessionStore, func() error, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, nil, err
	}
	return NewStore(db), db.Close, nil
}

// Collector orchestrates one collection cycle: window computation, session
// listing, assembly, extraction, upload, and cursor advancement.
type Collector struct {
	cfg       *Config
	state     *StateStore
	builder   *TraceBuilder
	uploader  RecordUploader
	reporter  Reporter
	guard     CollectorState
	openStore func(path string) (sessionStore, func() error, error)

	// Now is swappable for tests.
	Now func() time.Time
}

// NewCollector wires a collector from its collaborators.
func NewCollector(cfg *Config, state *StateStore, builder *TraceBuilder, uploader RecordUploader, reporter Reporter) *Collector {
	if reporter == nil {
		reporter = LogReporter{}
	}
	return &Collector{
		cfg:       cfg,
		state:     state,
		builder:   builder,
		uploader:  uploader,
		reporter:  reporter,
		openStore: openSQLiteStore,
		Now:       time.Now,
	}
}

// CycleResult summarizes one collection cycle.
type CycleResult struct {
	Skipped             bool // another cycle was in flight
	SessionsSeen        int
	SessionsSkipped     int // no-op fast path (cursor already at latest fragment)
	SessionsUnprocessed int // listed but not processed (cancellation, read error)
	RecordsBuilt        int
	RecordsUploaded     int
	FailedBatches       int
	DroppedTurns        int // turns with empty input/output after extraction
	BarrenSessions      int // sessions where every pending turn was dropped
}

// sessionOutcome is what one session contributes to the cycle: records to
// upload plus the cursor position to commit once they land.
type sessionOutcome struct {
	sessionID    string
	records      []*TraceRecord
	pendingID    string
	pendingTime  time.Time
	hasPending   bool
	droppedTurns int
}

// RunCycle executes one collection cycle. Read failures abort the cycle with
// no state mutated. Upload failures leave the affected sessions' cursors and
// the window boundary untouched so the same turns retry next cycle.
func (c *Collector) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !c.guard.tryBegin() {
		LogInfo("collection cycle already in flight, skipping this trigger")
		return &CycleResult{Skipped: true}, nil
	}
	defer c.guard.end()

	result := &CycleResult{}

	windowStart := c.state.LastWindowEnd()
	windowEnd := c.Now().Add(-c.cfg.SettleGrace)
	if !windowEnd.After(windowStart) {
		return result, nil
	}

	store, closeStore, err := c.openStore(c.cfg.StoragePath)
	if err != nil {
		c.reporter.Report(err, map[string]string{"component": "store", "path": c.cfg.StoragePath})
		return nil, err
	}
	defer closeStore()

	sessions, err := store.ListUpdatedSessions(windowStart, windowEnd)
	if err != nil {
		c.reporter.Report(err, map[string]string{"component": "store"})
		return nil, err
	}
	result.SessionsSeen = len(sessions)
	if len(sessions) == 0 {
		c.state.SetLastWindowEnd(windowEnd)
		return result, c.persistState()
	}

	outcomes := c.processSessions(ctx, store, sessions, result)

	var records []*TraceRecord
	for _, outcome := range outcomes {
		records = append(records, outcome.records...)
		result.DroppedTurns += outcome.droppedTurns
		if len(outcome.records) == 0 && outcome.droppedTurns > 0 {
			result.BarrenSessions++
		}
	}
	result.RecordsBuilt = len(records)

	upload := c.uploader.Upload(ctx, records)
	result.RecordsUploaded = upload.Uploaded
	result.FailedBatches = upload.FailedBatches

	// Cursor commits: a session advances only when every batch carrying its
	// records succeeded. Sessions whose pending turns were all dropped have
	// nothing in flight and advance unconditionally.
	for _, outcome := range outcomes {
		if !outcome.hasPending {
			continue
		}
		if len(outcome.records) > 0 && upload.SessionFailed(outcome.sessionID) {
			LogInfo("session %s: upload failed, cursor unchanged for retry", outcome.sessionID)
			continue
		}
		c.state.SetCursor(outcome.sessionID, outcome.pendingID, outcome.pendingTime)
	}

	// The window boundary moves only on a fully clean cycle. A failed batch,
	// a per-session read error, or a cancellation that left listed sessions
	// unprocessed all pin the boundary so those sessions reappear in the next
	// window; advancing past them would lose their turns for good.
	if upload.FailedBatches == 0 && result.SessionsUnprocessed == 0 {
		c.state.SetLastWindowEnd(windowEnd)
	} else if result.SessionsUnprocessed > 0 {
		LogWarn("%d session(s) left unprocessed, window boundary held for retry", result.SessionsUnprocessed)
	}

	if result.BarrenSessions > 0 {
		LogWarn("%d session(s) advanced without producing any record this cycle", result.BarrenSessions)
	}

	return result, c.persistState()
}

// processSessions runs per-session work concurrently. Sessions are
// independent units sharing no mutable state; cursor writes serialize inside
// the StateStore. Sessions left unprocessed by cancellation or a read error
// are counted in result.SessionsUnprocessed; the caller must hold the window
// boundary so they come back next cycle.
func (c *Collector) processSessions(ctx context.Context, store sessionStore, sessions []*RawComposer, result *CycleResult) []*sessionOutcome {
	outcomes := make([]*sessionOutcome, len(sessions))
	processed := make([]bool, len(sessions))
	var skipped int

	var wg sync.WaitGroup
	for i, session := range sessions {
		if ctx.Err() != nil {
			break
		}

		cursor, hasCursor := c.state.GetCursor(session.ComposerID)
		if hasCursor && sessionAtCursor(session, cursor) {
			skipped++
			processed[i] = true
			continue
		}

		wg.Add(1)
		go func(i int, session *RawComposer, cursor Cursor, hasCursor bool) {
			defer wg.Done()
			var cursorPtr *Cursor
			if hasCursor {
				cursorPtr = &cursor
			}
			outcome, err := c.processSession(store, session, cursorPtr)
			if err != nil {
				c.reporter.Report(err, map[string]string{"component": "assembler", "session": session.ComposerID})
				return
			}
			outcomes[i] = outcome
			processed[i] = true
		}(i, session, cursor, hasCursor)
	}
	wg.Wait()

	result.SessionsSkipped = skipped
	for _, done := range processed {
		if !done {
			result.SessionsUnprocessed++
		}
	}

	compact := outcomes[:0]
	for _, outcome := range outcomes {
		if outcome != nil {
			compact = append(compact, outcome)
		}
	}
	return compact
}

// sessionAtCursor is the no-op fast path: the session's latest fragment is
// already the cursor, so nothing new exists.
func sessionAtCursor(session *RawComposer, cursor Cursor) bool {
	headers := session.FullConversationHeadersOnly
	return len(headers) > 0 && headers[len(headers)-1].BubbleID == cursor.LastFragmentID
}

func (c *Collector) processSession(store sessionStore, session *RawComposer, cursor *Cursor) (*sessionOutcome, error) {
	bubbles, err := store.LoadFragments(session)
	if err != nil {
		return nil, err
	}

	fragments := NormalizeFragments(session, bubbles)
	turns := AssembleTurns(session.ComposerID, fragments)
	pending := RetainAfterCursor(turns, fragments, cursor)

	outcome := &sessionOutcome{sessionID: session.ComposerID}
	for i, turn := range pending {
		if !turn.Complete() {
			if i == len(pending)-1 {
				// Trailing turn still waiting for the agent: defer whole to
				// the next cycle so it uploads exactly once when finished.
				break
			}
			// An abandoned mid-session turn (user message with no reply,
			// followed by a newer user message) can never complete; advance
			// past it.
			outcome.advanceTo(turn)
			continue
		}

		record := c.builder.Build(session, turn)
		outcome.advanceTo(turn)
		if record == nil {
			outcome.droppedTurns++
			continue
		}
		outcome.records = append(outcome.records, record)
	}

	return outcome, nil
}

func (o *sessionOutcome) advanceTo(turn *Turn) {
	last := turn.LastFragment()
	o.pendingID = last.ID
	o.pendingTime = last.Timestamp
	o.hasPending = true
}

func (c *Collector) persistState() error {
	if err := c.state.Save(); err != nil {
		c.reporter.Report(err, map[string]string{"component": "state"})
		return fmt.Errorf("failed to persist collector state: %w", err)
	}
	return nil
}
