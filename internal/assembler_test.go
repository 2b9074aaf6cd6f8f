package internal

import (
	"testing"
	"time"
)

func userFrag(id, text string, ts int64) Fragment {
	return Fragment{ID: id, Author: AuthorUser, Text: text, Timestamp: time.UnixMilli(ts)}
}

func agentFrag(id, text string, ts int64) Fragment {
	return Fragment{ID: id, Author: AuthorAgent, Text: text, Timestamp: time.UnixMilli(ts)}
}

func TestAssembleTurns(t *testing.T) {
	tests := []struct {
		name      string
		fragments []Fragment
		wantTurns int
		wantUsers []string // first user fragment id per turn
	}{
		{
			name: "two turns with multi-fragment agent response",
			fragments: []Fragment{
				userFrag("A", "question", 1000),
				agentFrag("B", "part one", 2000),
				agentFrag("C", "part two", 3000),
				userFrag("D", "follow-up", 4000),
				agentFrag("E", "answer", 5000),
			},
			wantTurns: 2,
			wantUsers: []string{"A", "D"},
		},
		{
			name: "leading agent fragments dropped",
			fragments: []Fragment{
				agentFrag("orphan", "no turn open", 1000),
				userFrag("A", "question", 2000),
				agentFrag("B", "answer", 3000),
			},
			wantTurns: 1,
			wantUsers: []string{"A"},
		},
		{
			name: "trailing user-only turn kept",
			fragments: []Fragment{
				userFrag("A", "question", 1000),
				agentFrag("B", "answer", 2000),
				userFrag("C", "still typing", 3000),
			},
			wantTurns: 2,
			wantUsers: []string{"A", "C"},
		},
		{
			name:      "empty session",
			fragments: nil,
			wantTurns: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := AssembleTurns("s1", tt.fragments)
			if len(turns) != tt.wantTurns {
				t.Fatalf("got %d turns, want %d", len(turns), tt.wantTurns)
			}
			for i, wantUser := range tt.wantUsers {
				if got := turns[i].User[0].ID; got != wantUser {
					t.Errorf("turn %d user = %s, want %s", i, got, wantUser)
				}
			}
		})
	}
}

func TestAssembleTurnsGroupsAgentFragments(t *testing.T) {
	fragments := []Fragment{
		userFrag("A", "q", 1000),
		agentFrag("B", "r1", 2000),
		agentFrag("C", "r2", 3000),
	}
	turns := AssembleTurns("s1", fragments)
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if len(turns[0].Agent) != 2 {
		t.Errorf("agent fragments = %d, want 2", len(turns[0].Agent))
	}
	if got := turns[0].LastFragment().ID; got != "C" {
		t.Errorf("LastFragment = %s, want C", got)
	}
}

func TestTurnComplete(t *testing.T) {
	tests := []struct {
		name string
		turn *Turn
		want bool
	}{
		{
			name: "user and agent with text",
			turn: &Turn{User: []Fragment{userFrag("A", "q", 1)}, Agent: []Fragment{agentFrag("B", "r", 2)}},
			want: true,
		},
		{
			name: "user only",
			turn: &Turn{User: []Fragment{userFrag("A", "q", 1)}},
			want: false,
		},
		{
			name: "agent fragment without content",
			turn: &Turn{User: []Fragment{userFrag("A", "q", 1)}, Agent: []Fragment{{ID: "B", Author: AuthorAgent}}},
			want: false,
		},
		{
			name: "agent with tool call only",
			turn: &Turn{
				User:  []Fragment{userFrag("A", "q", 1)},
				Agent: []Fragment{{ID: "B", Author: AuthorAgent, Tool: &ToolInvocation{Name: "grep"}}},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.turn.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetainAfterCursor(t *testing.T) {
	fragments := []Fragment{
		userFrag("A", "q1", 1000),
		agentFrag("B", "r1", 2000),
		userFrag("C", "q2", 3000),
		agentFrag("D", "r2", 4000),
	}
	turns := AssembleTurns("s1", fragments)

	t.Run("nil cursor retains everything", func(t *testing.T) {
		if got := RetainAfterCursor(turns, fragments, nil); len(got) != 2 {
			t.Errorf("retained %d turns, want 2", len(got))
		}
	})

	t.Run("cursor at first turn's end drops it", func(t *testing.T) {
		cursor := &Cursor{LastFragmentID: "B", LastFragmentTime: time.UnixMilli(2000)}
		got := RetainAfterCursor(turns, fragments, cursor)
		if len(got) != 1 {
			t.Fatalf("retained %d turns, want 1", len(got))
		}
		if got[0].User[0].ID != "C" {
			t.Errorf("retained turn starts at %s, want C", got[0].User[0].ID)
		}
	})

	t.Run("cursor at session end drops everything", func(t *testing.T) {
		cursor := &Cursor{LastFragmentID: "D", LastFragmentTime: time.UnixMilli(4000)}
		if got := RetainAfterCursor(turns, fragments, cursor); len(got) != 0 {
			t.Errorf("retained %d turns, want 0", len(got))
		}
	})

	t.Run("vanished cursor id falls back to timestamp", func(t *testing.T) {
		cursor := &Cursor{LastFragmentID: "gone", LastFragmentTime: time.UnixMilli(2500)}
		got := RetainAfterCursor(turns, fragments, cursor)
		if len(got) != 1 {
			t.Fatalf("retained %d turns, want 1", len(got))
		}
		if got[0].User[0].ID != "C" {
			t.Errorf("retained turn starts at %s, want C", got[0].User[0].ID)
		}
	})
}
