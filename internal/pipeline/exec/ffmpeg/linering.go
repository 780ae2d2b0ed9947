// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bytes"
	"strings"
	"sync"
)

// maxPartial bounds an unterminated line; longer fragments are flushed as-is.
const maxPartial = 4096

// LineRing is a thread-safe ring buffer for capturing the last N lines of log output.
type LineRing struct {
	mu      sync.RWMutex
	lines   []string
	head    int
	size    int
	partial bytes.Buffer
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50 // Default
	}
	return &LineRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Write implements io.Writer. Input is split on newlines; a trailing fragment
// is held back until its newline arrives so split writes form one line.
func (r *LineRing) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.partial.Write(data)
			if r.partial.Len() > maxPartial {
				r.push(r.partial.String())
				r.partial.Reset()
			}
			break
		}
		r.partial.Write(data[:i])
		r.push(r.partial.String())
		r.partial.Reset()
		data = data[i+1:]
	}

	return len(p), nil
}

func (r *LineRing) push(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % r.size
}

// LastN returns the last N lines in chronological order. An unterminated
// trailing fragment is included as the newest line.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// r.head is the next write position, so it is also the oldest slot once wrapped.
	ordered := make([]string, 0, r.size+1)
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.size
		if r.lines[idx] != "" {
			ordered = append(ordered, r.lines[idx])
		}
	}
	if tail := strings.TrimSpace(r.partial.String()); tail != "" {
		ordered = append(ordered, tail)
	}

	if n <= 0 || len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}
