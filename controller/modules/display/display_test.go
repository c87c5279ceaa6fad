package display

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/claybath/densimeter/controller/diag"
	"github.com/claybath/densimeter/controller/modules/measurement"
)

type fakeScreen struct {
	frames [][]string
	err    error
}

func (s *fakeScreen) ShowLines(lines ...string) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, lines)
	return nil
}

func (s *fakeScreen) Close() error { return nil }

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 14, 30, 5, 0, time.Local)
}

func newTestDisplay(screen *fakeScreen, st measurement.Status) *Controller {
	d := diag.NewLogger(diag.NewBuffer(diag.DefaultCapacity), fixedNow)
	return New(screen, func() measurement.Status { return st }, fixedNow, d)
}

func TestPagesAlternate(t *testing.T) {
	screen := &fakeScreen{}
	st := measurement.Status{DesiredDensity: 1.025, LastMeasurement: 1.031}
	c := newTestDisplay(screen, st)

	c.Refresh()
	c.Refresh()
	c.Refresh()

	assert.Len(t, screen.frames, 3)
	assert.Equal(t, []string{"DESIRED DENSITY", "1.025", "LAST MEASUREMENT", "1.031"}, screen.frames[0])
	assert.Equal(t, "NO SCHEDULED MEAS", screen.frames[1][0])
	assert.Equal(t, screen.frames[0], screen.frames[2])
}

func TestTargetsPageWithoutHistory(t *testing.T) {
	screen := &fakeScreen{}
	c := newTestDisplay(screen, measurement.Status{DesiredDensity: 1.025})

	c.Refresh()
	assert.Equal(t, "--", screen.frames[0][3])
}

func TestStatusPageSchedule(t *testing.T) {
	screen := &fakeScreen{}
	next := time.Date(2026, 8, 29, 15, 0, 0, 0, time.Local)
	st := measurement.Status{
		HasScheduledMeasurement: true,
		NextMeasurementTime:     next.Unix(),
	}
	c := newTestDisplay(screen, st)

	c.Refresh() // targets page
	c.Refresh() // status page
	assert.Equal(t, "NEXT 15:00 29/08/26", screen.frames[1][0])
	assert.Equal(t, "14:30:05 29/08", screen.frames[1][1])
	assert.Equal(t, "READY", screen.frames[1][2])
}

func TestStateLabels(t *testing.T) {
	cases := map[string]string{
		"idle":              "READY",
		"emptying_initial":  "PREPARING",
		"filling":           "FILLING",
		"waiting_to_settle": "SETTLING",
		"emptying_final":    "EMPTYING",
	}
	for state, want := range cases {
		assert.Equal(t, want, stateLabel(measurement.Status{State: state}), state)
	}
	assert.Equal(t, "MEAS 3/10", stateLabel(measurement.Status{
		State: "measuring", SampleCount: 3, SampleTarget: 10,
	}))
}

func TestNilScreenIsNoOp(t *testing.T) {
	d := diag.NewLogger(diag.NewBuffer(diag.DefaultCapacity), fixedNow)
	c := New(nil, func() measurement.Status { return measurement.Status{} }, fixedNow, d)
	// Must not panic
	c.Refresh()
	c.Refresh()
}

func TestFlakyScreenLogsOnce(t *testing.T) {
	buf := diag.NewBuffer(diag.DefaultCapacity)
	d := diag.NewLogger(buf, fixedNow)
	screen := &fakeScreen{err: errors.New("i2c write failed")}
	c := New(screen, func() measurement.Status { return measurement.Status{} }, fixedNow, d)

	c.Refresh()
	c.Refresh()
	c.Refresh()
	assert.Equal(t, 1, buf.Total())

	// Recovery clears the latch so a later failure is reported again
	screen.err = nil
	c.Refresh()
	screen.err = errors.New("i2c write failed")
	c.Refresh()
	assert.Equal(t, 2, buf.Total())
}
