package tui

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const maxInputHistory = 500

// LineHistory is the list of lines typed at the REPL prompt, persisted one
// per line so earlier sessions can be recalled with the arrow keys.
type LineHistory struct {
	mu    sync.Mutex
	path  string
	lines []string
}

// NewLineHistory creates an empty history backed by path. An empty path
// keeps the history in memory only.
func NewLineHistory(path string) *LineHistory {
	return &LineHistory{path: path}
}

// Load reads the history file. A missing file is not an error.
func (h *LineHistory) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = nil
	if h.path == "" {
		return nil
	}

	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to open input history %s", h.path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			h.lines = append(h.lines, line)
		}
	}
	h.lines = lastN(h.lines, maxInputHistory)
	return errors.Wrapf(sc.Err(), "failed to read input history %s", h.path)
}

// Add records a submitted line, skipping blanks and immediate repeats.
func (h *LineHistory) Add(line string) {
	if strings.TrimSpace(line) == "" || strings.Contains(line, "\n") {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return
	}
	h.lines = append(h.lines, line)
}

// Lines returns a copy of the recorded lines, oldest first.
func (h *LineHistory) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

// Save writes the newest lines to disk.
func (h *LineHistory) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.path == "" {
		return nil
	}
	h.lines = lastN(h.lines, maxInputHistory)

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", h.path)
	}
	var b strings.Builder
	for _, line := range h.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(h.path, []byte(b.String()), 0o600); err != nil {
		return errors.Wrapf(err, "failed to write input history %s", h.path)
	}
	return nil
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return append([]string(nil), lines[len(lines)-n:]...)
}
