package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/rafabd1/cmd-ai/internal/types"
)

// Entry is one past question and the raw reply it received.
type Entry struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// Store keeps the query/response history and persists it as a JSON list.
type Store struct {
	mu      sync.RWMutex
	path    string
	limit   int
	entries []Entry
}

// NewStore creates an empty store backed by path. Saves keep the newest
// limit entries; a non-positive limit keeps everything.
func NewStore(path string, limit int) *Store {
	return &Store{path: path, limit: limit}
}

// Load reads the history file. A missing file yields an empty history with no
// error. Unreadable or malformed files also yield an empty history; the
// returned error is a warning for the user.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "starting with empty history, could not read %s", s.path)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "starting with empty history, could not decode %s", s.path)
	}
	if _, ok := raw.([]interface{}); !ok {
		return fmt.Errorf("starting with empty history, %s does not contain a valid JSON list", s.path)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrapf(err, "starting with empty history, unexpected entries in %s", s.path)
	}
	s.entries = entries
	return nil
}

// Save writes the newest entries to disk, trimming the in-memory list to match.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.trimmed()
	out := s.entries
	if out == nil {
		out = []Entry{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode history")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create history directory for %s", s.path)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return errors.Wrapf(err, "failed to write history %s", s.path)
	}
	return nil
}

func (s *Store) trimmed() []Entry {
	if s.limit <= 0 || len(s.entries) <= s.limit {
		return s.entries
	}
	return append([]Entry(nil), s.entries[len(s.entries)-s.limit:]...)
}

// Append records a new exchange in memory. Call Save to persist it.
func (s *Store) Append(query, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Query: query, Response: response})
}

// Clear drops every entry in memory. Call Save to persist it.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Len returns the number of entries held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Recent returns a copy of the newest n entries, oldest first.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	return append([]Entry(nil), s.entries[start:]...)
}

// Messages returns the newest n exchanges as alternating user/assistant messages.
func (s *Store) Messages(n int) []types.Message {
	recent := s.Recent(n)
	msgs := make([]types.Message, 0, 2*len(recent))
	for _, e := range recent {
		msgs = append(msgs,
			types.Message{Role: types.RoleUser, Content: e.Query},
			types.Message{Role: types.RoleAssistant, Content: e.Response},
		)
	}
	return msgs
}
