package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRTC struct {
	t   time.Time
	set []time.Time
}

func (f *fakeRTC) ReadTime() (time.Time, error) { return f.t, nil }
func (f *fakeRTC) SetTime(t time.Time) error    { f.set = append(f.set, t); return nil }

func TestSetShiftsWallTime(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	target := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	require.NoError(t, c.Set(target))
	assert.WithinDuration(t, target, c.Now(), time.Second)
}

func TestNewSyncsFromRTC(t *testing.T) {
	rtc := &fakeRTC{t: time.Now().Add(-2 * time.Hour)}
	c, err := New(rtc)
	require.NoError(t, err)
	assert.WithinDuration(t, rtc.t, c.Now(), time.Second)

	target := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, c.Set(target))
	require.Len(t, rtc.set, 1)
	assert.Equal(t, target, rtc.set[0])
}
