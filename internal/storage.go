package internal

import (
	"database/sql"
	"fmt"
	"time"
)

// Store reads sessions and fragments from cursorDiskKV. It never writes.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open read-only database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListUpdatedSessions returns composer records whose lastUpdatedAt falls in
// (windowStart, windowEnd]. The half-open window keeps consecutive cycles
// from either duplicating or skipping a session. Sessions still receiving
// updates inside the settle grace (lastUpdatedAt > windowEnd) are excluded
// unless finalized, so a conversation is never captured mid-generation.
func (s *Store) ListUpdatedSessions(windowStart, windowEnd time.Time) ([]*RawComposer, error) {
	pairs, err := QueryDiskKV(s.db, "composerData:%")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	var sessions []*RawComposer
	for _, pair := range pairs {
		composer, err := ParseRawComposer(pair.Key, pair.Value)
		if err != nil {
			LogDebug("skipping malformed composer row %s: %v", pair.Key, err)
			continue
		}

		updated := composer.GetLastUpdatedAt()
		if updated.IsZero() {
			continue
		}
		if !updated.After(windowStart) {
			continue
		}
		if updated.After(windowEnd) && !composer.Finalized() {
			// Still settling; next cycle's window will pick it up.
			continue
		}
		sessions = append(sessions, composer)
	}

	return sessions, nil
}

// LoadFragments returns the session's bubbles in authoritative order. When
// the composer carries a conversation header list, that list dictates order
// and membership; bubbles missing from the store are skipped. Without
// headers, insertion order of the key scan is kept. One malformed bubble
// never fails the session.
func (s *Store) LoadFragments(composer *RawComposer) ([]*RawBubble, error) {
	pattern := fmt.Sprintf("bubbleId:%s:%%", composer.ComposerID)
	pairs, err := QueryDiskKV(s.db, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to query bubbles for session %s: %w", composer.ComposerID, err)
	}

	byID := make(map[string]*RawBubble, len(pairs))
	var scanned []*RawBubble
	for _, pair := range pairs {
		bubble, err := ParseRawBubble(pair.Key, pair.Value)
		if err != nil {
			LogDebug("skipping malformed bubble row %s: %v", pair.Key, err)
			continue
		}
		byID[bubble.BubbleID] = bubble
		scanned = append(scanned, bubble)
	}

	headers := composer.FullConversationHeadersOnly
	if len(headers) == 0 {
		return scanned, nil
	}

	ordered := make([]*RawBubble, 0, len(headers))
	for _, header := range headers {
		bubble, ok := byID[header.BubbleID]
		if !ok {
			LogDebug("session %s header references missing bubble %s", composer.ComposerID, header.BubbleID)
			continue
		}
		// The header's author marker wins over the bubble's own when they
		// disagree; the order list is the authoritative record.
		if header.Type != 0 {
			bubble.Type = header.Type
		}
		ordered = append(ordered, bubble)
	}

	return ordered, nil
}
