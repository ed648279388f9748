package format

import (
	"strings"
	"sync"
	"time"
)

const (
	progressWindow = 5
	editInterval   = 2 * time.Second
)

// ProgressTracker accumulates executor progress lines and renders a rolling
// window suitable for repeated message edits. Safe for use from the progress
// callback goroutine.
type ProgressTracker struct {
	mu       sync.Mutex
	lines    []string
	lastEdit time.Time
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Add appends one progress line.
func (t *ProgressTracker) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
}

// Render shows the newest lines, oldest first, capped at the window size.
func (t *ProgressTracker) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "Working..."
	}
	start := 0
	if len(t.lines) > progressWindow {
		start = len(t.lines) - progressWindow
	}
	return "Working...\n" + strings.Join(t.lines[start:], "\n")
}

// ShouldEdit rate-limits message edits to one per interval. The first call
// always returns true.
func (t *ProgressTracker) ShouldEdit(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.lastEdit) < editInterval {
		return false
	}
	t.lastEdit = now
	return true
}

// Count reports how many progress lines arrived so far.
func (t *ProgressTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}
