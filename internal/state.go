package internal

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Cursor marks the last fragment of a session that was successfully
// converted. Turns up to and including this fragment are never re-emitted.
type Cursor struct {
	LastFragmentID   string    `yaml:"last_fragment_id"`
	LastFragmentTime time.Time `yaml:"last_fragment_time"`
}

// stateFile is the single serialized blob holding everything the collector
// persists: per-session cursors, the last processed window boundary, and the
// opaque installation identifier.
type stateFile struct {
	InstallationID string            `yaml:"installation_id"`
	LastWindowEnd  time.Time         `yaml:"last_window_end,omitempty"`
	Cursors        map[string]Cursor `yaml:"cursors"`
}

// StateStore owns the persisted collector state. Writes are serialized per
// store; the orchestrator is the only writer, with last-write-wins semantics.
type StateStore struct {
	mu    sync.Mutex
	path  string
	state stateFile
}

// NewStateStore creates a store backed by the given file path. Call Load
// before use.
func NewStateStore(path string) *StateStore {
	return &StateStore{
		path:  path,
		state: stateFile{Cursors: make(map[string]Cursor)},
	}
}

// DefaultStatePath is the state location used when no override is given.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".opik-cursor-collector", "state.yaml"), nil
}

// Load reads the state file. A missing file initializes fresh state with a
// new installation id; any other failure is a StateError.
func (s *StateStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = stateFile{
				InstallationID: uuid.NewString(),
				Cursors:        make(map[string]Cursor),
			}
			return nil
		}
		return &StateError{Path: s.path, Op: "load", Err: err}
	}

	var loaded stateFile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return &StateError{Path: s.path, Op: "load", Err: err}
	}
	if loaded.Cursors == nil {
		loaded.Cursors = make(map[string]Cursor)
	}
	if loaded.InstallationID == "" {
		loaded.InstallationID = uuid.NewString()
	}
	s.state = loaded
	return nil
}

// Save persists the state atomically (temp file plus rename) so a crash
// mid-write never corrupts the cursor map.
func (s *StateStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *StateStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &StateError{Path: s.path, Op: "save", Err: err}
	}

	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return &StateError{Path: s.path, Op: "save", Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &StateError{Path: s.path, Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &StateError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// GetCursor returns the session's cursor, if one exists. A session without a
// cursor is the bootstrap case: the whole session uploads.
func (s *StateStore) GetCursor(sessionID string) (Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.state.Cursors[sessionID]
	return cursor, ok
}

// SetCursor advances the session's cursor. Updates are monotonic: an attempt
// to move the cursor backwards in time is ignored.
func (s *StateStore) SetCursor(sessionID, fragmentID string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.state.Cursors[sessionID]; ok && existing.LastFragmentTime.After(ts) {
		LogWarn("refusing to roll back cursor for session %s (%s -> %s)", sessionID, existing.LastFragmentTime, ts)
		return
	}
	s.state.Cursors[sessionID] = Cursor{LastFragmentID: fragmentID, LastFragmentTime: ts}
}

// ResetCursor removes one session's cursor (explicit user action only).
func (s *StateStore) ResetCursor(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Cursors, sessionID)
}

// ResetAll clears every cursor and the window boundary.
func (s *StateStore) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Cursors = make(map[string]Cursor)
	s.state.LastWindowEnd = time.Time{}
}

// Cursors returns a copy of the cursor map for display.
func (s *StateStore) Cursors() map[string]Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Cursor, len(s.state.Cursors))
	for id, cursor := range s.state.Cursors {
		out[id] = cursor
	}
	return out
}

// LastWindowEnd returns the end of the last successfully processed window.
func (s *StateStore) LastWindowEnd() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastWindowEnd
}

// SetLastWindowEnd advances the window boundary.
func (s *StateStore) SetLastWindowEnd(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastWindowEnd = t
}

// InstallationID returns the opaque id generated on first run.
func (s *StateStore) InstallationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InstallationID
}
