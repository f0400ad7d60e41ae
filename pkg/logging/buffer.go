package logging

import (
	"strings"
	"sync"
)

// RingWriter is a thread-safe writer that keeps the last N written lines.
// The slog text handler writes exactly one record per call, so each Write
// is one log line.
type RingWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// GlobalLogRing is the singleton capture target wired into the server logger.
var GlobalLogRing = NewRingWriter(500)

// NewRingWriter creates a ring holding up to capacity lines.
func NewRingWriter(capacity int) *RingWriter {
	if capacity < 1 {
		capacity = 1
	}
	return &RingWriter{lines: make([]string, capacity)}
}

// Resize replaces the buffer with an empty one of the given capacity.
func (w *RingWriter) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = make([]string, capacity)
	w.next = 0
	w.full = false
}

// Write implements io.Writer.
func (w *RingWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = line
	w.next++
	if w.next == len(w.lines) {
		w.next = 0
		w.full = true
	}
	return len(p), nil
}

// Lines returns the captured lines, oldest first.
func (w *RingWriter) Lines() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.full {
		out := make([]string, w.next)
		copy(out, w.lines[:w.next])
		return out
	}

	out := make([]string, 0, len(w.lines))
	out = append(out, w.lines[w.next:]...)
	out = append(out, w.lines[:w.next]...)
	return out
}

// Last returns the most recent line, or "" if nothing was captured yet.
func (w *RingWriter) Last() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	idx := w.next - 1
	if idx < 0 {
		if !w.full {
			return ""
		}
		idx = len(w.lines) - 1
	}
	return w.lines[idx]
}
