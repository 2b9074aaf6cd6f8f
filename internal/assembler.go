package internal

// Turn is one user message plus the contiguous agent fragments that follow
// it, terminated by the next user fragment or the end of the session.
type Turn struct {
	SessionID string
	User      []Fragment
	Agent     []Fragment

	// lastIndex is the position of the turn's final fragment within the
	// session's fragment slice, used for cursor resume.
	lastIndex int
}

// Complete reports whether the turn is eligible for conversion: at least one
// user fragment and at least one agent fragment carrying content. A trailing
// user-only turn stays incomplete so the same logical turn uploads exactly
// once when the agent answers by a later cycle.
func (t *Turn) Complete() bool {
	if len(t.User) == 0 {
		return false
	}
	for _, frag := range t.Agent {
		if frag.HasContent() {
			return true
		}
	}
	return false
}

// LastFragment returns the turn's final fragment.
func (t *Turn) LastFragment() Fragment {
	if len(t.Agent) > 0 {
		return t.Agent[len(t.Agent)-1]
	}
	return t.User[len(t.User)-1]
}

// HasContent reports whether the fragment derived any content at all.
func (f Fragment) HasContent() bool {
	return f.Text != "" || f.Tool != nil || f.Reasoning != nil || len(f.ReasoningBlocks) > 0
}

// AssembleTurns groups a session's ordered fragments into turns. A user
// fragment closes the open turn and starts a new one; agent (and unknown)
// fragments append to the open turn and are dropped when no turn is open.
func AssembleTurns(sessionID string, fragments []Fragment) []*Turn {
	var turns []*Turn
	var open *Turn

	for i, frag := range fragments {
		switch frag.Author {
		case AuthorUser:
			if open != nil {
				turns = append(turns, open)
			}
			open = &Turn{SessionID: sessionID, lastIndex: i}
			open.User = append(open.User, frag)
		default:
			if open == nil {
				LogDebug("session %s: dropping leading %s fragment %s with no open turn", sessionID, frag.Author, frag.ID)
				continue
			}
			open.Agent = append(open.Agent, frag)
			open.lastIndex = i
		}
	}

	if open != nil {
		turns = append(turns, open)
	}

	return turns
}

// RetainAfterCursor drops every turn already covered by the cursor: a turn
// whose final fragment is the cursor fragment (or precedes it) was handled by
// an earlier cycle. When the cursor fragment id is no longer present in the
// session, the cursor timestamp decides instead.
func RetainAfterCursor(turns []*Turn, fragments []Fragment, cursor *Cursor) []*Turn {
	if cursor == nil {
		return turns
	}

	cursorIdx := -1
	for i, frag := range fragments {
		if frag.ID == cursor.LastFragmentID {
			cursorIdx = i
			break
		}
	}

	var retained []*Turn
	for _, turn := range turns {
		if cursorIdx >= 0 {
			if turn.lastIndex > cursorIdx {
				retained = append(retained, turn)
			}
			continue
		}
		if turn.LastFragment().Timestamp.After(cursor.LastFragmentTime) {
			retained = append(retained, turn)
		}
	}
	return retained
}
