// Package logbuf keeps the most recent log lines in a fixed-size ring.
package logbuf

import (
	"strings"
	"sync"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 1000

// Ring is a bounded, concurrency-safe line buffer. Once full, each Append drops the oldest line.
type Ring struct {
	mu      sync.Mutex
	lines   []string
	start   int
	n       int
	dropped uint64
}

func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{lines: make([]string, capacity)}
}

func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := len(r.lines)
	if r.n < c {
		r.lines[(r.start+r.n)%c] = line
		r.n++
		return
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % c
	r.dropped++
}

// Lines returns the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.lines[(r.start+i)%len(r.lines)]
	}
	return out
}

// Text joins the buffered lines, each followed by a newline.
func (r *Ring) Text() string {
	lines := r.Lines()
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func (r *Ring) Cap() int { return len(r.lines) }

// Dropped counts lines evicted since creation.
func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
