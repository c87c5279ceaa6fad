// Package diag keeps a bounded, overwrite-oldest buffer of recent diagnostic
// events so the web UI can show what the controller has been doing without any
// serial cable attached.
package diag

import (
	"sync"
	"time"
)

// DefaultCapacity matches the firmware's serial buffer size.
const DefaultCapacity = 100

type entry struct {
	ts   time.Time
	line string
}

// Buffer is a fixed-capacity ring of timestamped log lines.
type Buffer struct {
	mu    sync.Mutex
	lines []entry
	next  int
	total int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{lines: make([]entry, capacity)}
}

// Append records one line, evicting the oldest once the buffer is full.
func (b *Buffer) Append(ts time.Time, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[b.next] = entry{ts: ts, line: line}
	b.next = (b.next + 1) % len(b.lines)
	b.total++
}

// Snapshot returns the retained lines, oldest first, each prefixed with its
// wall-clock timestamp.
func (b *Buffer) Snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := b.total
	if count > len(b.lines) {
		count = len(b.lines)
	}
	start := 0
	if b.total >= len(b.lines) {
		start = b.next
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		e := b.lines[(start+i)%len(b.lines)]
		out = append(out, "["+e.ts.Format("15:04:05")+"] "+e.line)
	}
	return out
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = entry{}
	}
	b.next = 0
	b.total = 0
}

// Total is the number of lines ever appended, including evicted ones.
func (b *Buffer) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *Buffer) Capacity() int {
	return len(b.lines)
}
