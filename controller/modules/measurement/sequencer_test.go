package measurement

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeSensor struct {
	readings []float64
	err      error
	i        int
}

func (s *fakeSensor) ReadAngle() (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(s.readings) == 0 {
		return 45.0, nil
	}
	v := s.readings[s.i%len(s.readings)]
	s.i++
	return v, nil
}

type testPin struct {
	name  string
	state bool
	log   []bool
}

func (p *testPin) Name() string    { return p.name }
func (p *testPin) Number() int     { return 0 }
func (p *testPin) Close() error    { return nil }
func (p *testPin) LastState() bool { return p.state }
func (p *testPin) Write(state bool) error {
	p.state = state
	p.log = append(p.log, state)
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FillDuration = 2
	cfg.WaitDuration = 3
	cfg.MeasurementDuration = 3
	cfg.EmptyDuration = 2
	return cfg
}

// drive ticks the sequencer at a sub-second cadence until it returns to Idle
// or maxTicks is hit, recording every state visited.
func drive(t *testing.T, s *Sequencer, clk *fakeClock, cfg Config, maxTicks int) ([]State, []Event) {
	t.Helper()
	var states []State
	var events []Event
	last := s.State()
	states = append(states, last)
	for i := 0; i < maxTicks; i++ {
		ev, _ := s.Tick(cfg)
		if ev != EventNone {
			events = append(events, ev)
		}
		if st := s.State(); st != last {
			states = append(states, st)
			last = st
		}
		if s.State() == Idle {
			return states, events
		}
		clk.Advance(250 * time.Millisecond)
	}
	t.Fatalf("sequencer did not return to Idle within %d ticks (state %s)", maxTicks, s.State())
	return nil, nil
}

func TestRunVisitsStatesInOrder(t *testing.T) {
	clk := newFakeClock()
	fill := &testPin{name: "fill"}
	empty := &testPin{name: "empty"}
	s := NewSequencer(fill, empty, &fakeSensor{readings: []float64{44, 45, 46}}, clk.Now)

	require.NoError(t, s.Start())
	states, _ := drive(t, s, clk, testConfig(), 500)

	assert.Equal(t, []State{
		EmptyingInitial, Filling, WaitingToSettle, Measuring, EmptyingFinal, Idle,
	}, states)
	assert.False(t, fill.LastState())
	assert.False(t, empty.LastState())
}

func TestBusyForWholeRun(t *testing.T) {
	clk := newFakeClock()
	s := NewSequencer(&testPin{}, &testPin{}, &fakeSensor{}, clk.Now)

	assert.False(t, s.Busy())
	require.NoError(t, s.Start())
	assert.True(t, s.Busy())

	for i := 0; i < 500 && s.State() != Idle; i++ {
		s.Tick(testConfig())
		if s.State() != Idle {
			assert.True(t, s.Busy())
		}
		clk.Advance(250 * time.Millisecond)
	}
	assert.Equal(t, Idle, s.State())
	assert.False(t, s.Busy())
}

func TestStartWhileBusyIsRejected(t *testing.T) {
	clk := newFakeClock()
	s := NewSequencer(&testPin{}, &testPin{}, &fakeSensor{}, clk.Now)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrBusy)
}

func TestActuatorOrdering(t *testing.T) {
	clk := newFakeClock()
	fill := &testPin{name: "fill"}
	empty := &testPin{name: "empty"}
	s := NewSequencer(fill, empty, &fakeSensor{}, clk.Now)
	cfg := testConfig()

	require.NoError(t, s.Start())
	// Start closes the drain before anything else
	assert.Equal(t, []bool{false}, empty.log)

	// Walk to Filling: fill must be open, drain closed
	for s.State() != Filling {
		s.Tick(cfg)
		clk.Advance(250 * time.Millisecond)
	}
	assert.True(t, fill.LastState())
	assert.False(t, empty.LastState())

	// Walk to EmptyingFinal: fill closed, drain open
	for s.State() != EmptyingFinal {
		s.Tick(cfg)
		clk.Advance(250 * time.Millisecond)
	}
	assert.False(t, fill.LastState())
	assert.True(t, empty.LastState())
}

func TestMeasuringRejectsImplausibleSamples(t *testing.T) {
	clk := newFakeClock()
	// 10 samples, 3 beyond +/-90
	sensor := &fakeSensor{readings: []float64{40, 41, 120, 42, -95, 43, 44, 150, 45, 46}}
	s := NewSequencer(&testPin{}, &testPin{}, sensor, clk.Now)
	cfg := testConfig()
	cfg.MeasurementDuration = 10

	require.NoError(t, s.Start())
	var completed Result
	for i := 0; i < 1000 && s.State() != Idle; i++ {
		if ev, res := s.Tick(cfg); ev == EventCompleted {
			completed = res
		}
		clk.Advance(250 * time.Millisecond)
	}
	require.Equal(t, Idle, s.State())

	assert.Equal(t, 10, completed.Samples)
	assert.Equal(t, 7, completed.ValidReadings)
	want := (40.0 + 41 + 42 + 43 + 44 + 45 + 46) / 7
	assert.InDelta(t, want, completed.MeanAngle, 1e-9)
}

func TestZeroValidSamplesStillDrains(t *testing.T) {
	clk := newFakeClock()
	sensor := &fakeSensor{err: errors.New("bus error")}
	empty := &testPin{name: "empty"}
	s := NewSequencer(&testPin{}, empty, sensor, clk.Now)

	require.NoError(t, s.Start())
	_, events := drive(t, s, clk, testConfig(), 500)

	assert.Contains(t, events, EventFailed)
	assert.NotContains(t, events, EventCompleted)
	assert.Contains(t, events, EventFinished)
	assert.False(t, empty.LastState())
}

func TestDurationsLatchedOnStateEntry(t *testing.T) {
	clk := newFakeClock()
	s := NewSequencer(&testPin{}, &testPin{}, &fakeSensor{}, clk.Now)
	cfg := testConfig()

	require.NoError(t, s.Start())
	for s.State() != Filling {
		s.Tick(cfg)
		clk.Advance(250 * time.Millisecond)
	}

	// Shrinking fillDuration mid-fill must not shorten the current fill
	shrunk := cfg
	shrunk.FillDuration = 0
	s.Tick(shrunk)
	assert.Equal(t, Filling, s.State())

	clk.Advance(2 * time.Second)
	s.Tick(shrunk)
	assert.Equal(t, WaitingToSettle, s.State())
}

func TestMeasuringTakesOneSamplePerSecond(t *testing.T) {
	clk := newFakeClock()
	sensor := &fakeSensor{readings: []float64{45}}
	s := NewSequencer(&testPin{}, &testPin{}, sensor, clk.Now)
	cfg := testConfig()

	require.NoError(t, s.Start())
	for s.State() != Measuring {
		s.Tick(cfg)
		clk.Advance(250 * time.Millisecond)
	}

	// Four rapid ticks within one second: no sample may be taken
	for i := 0; i < 4; i++ {
		ev, _ := s.Tick(cfg)
		assert.Equal(t, EventNone, ev)
		clk.Advance(200 * time.Millisecond)
	}
	clk.Advance(200 * time.Millisecond) // now past one second
	ev, res := s.Tick(cfg)
	assert.Equal(t, EventSampled, ev)
	assert.Equal(t, 1, res.Samples)
}
