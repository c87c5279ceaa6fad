package diag

import (
	"fmt"
	"log"
	"time"
)

// Logger mirrors every diagnostic line to the process log and to the ring
// buffer exposed over the API.
type Logger struct {
	buf *Buffer
	now func() time.Time
}

// NewLogger builds a Logger. now provides wall-clock timestamps; pass the
// controller clock's Now so set-time adjustments show up in the feed.
func NewLogger(buf *Buffer, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{buf: buf, now: now}
}

func (l *Logger) Logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	ts := l.now()
	log.Printf("[%s] %s", ts.Format("15:04:05"), line)
	l.buf.Append(ts, line)
}

func (l *Logger) Buffer() *Buffer {
	return l.buf
}
