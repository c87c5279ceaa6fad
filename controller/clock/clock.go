// Package clock provides the controller's settable wall clock. The instrument
// has no network time source (it hosts its own access point), so the operator
// sets the time over the API and an optional battery-backed RTC keeps it
// across power cycles.
package clock

import (
	"sync"
	"time"
)

// Clock yields wall-clock time and accepts explicit adjustment.
type Clock interface {
	Now() time.Time
	Set(t time.Time) error
}

// RTC is the hardware chip the clock syncs with, when present.
type RTC interface {
	ReadTime() (time.Time, error)
	SetTime(t time.Time) error
}

// clock keeps an offset against the process monotonic clock. Elapsed-time
// arithmetic between two Now() values stays monotonic even across Set calls,
// because the offset shifts wall readings only.
type clock struct {
	mu     sync.Mutex
	offset time.Duration
	rtc    RTC
}

// New builds a Clock. With a usable RTC the initial offset is taken from the
// chip; otherwise the system clock is trusted as-is.
func New(rtc RTC) (Clock, error) {
	c := &clock{rtc: rtc}
	if rtc != nil {
		t, err := rtc.ReadTime()
		if err != nil {
			return nil, err
		}
		c.offset = t.Sub(time.Now())
	}
	return c, nil
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *clock) Set(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = t.Sub(time.Now())
	if c.rtc != nil {
		return c.rtc.SetTime(t)
	}
	return nil
}
