package measurement

import (
	"errors"
	"math"
	"time"

	"github.com/reef-pi/hal"
)

// State of the measurement sequencer. A run walks Idle -> EmptyingInitial ->
// Filling -> WaitingToSettle -> Measuring -> EmptyingFinal -> Idle; Measuring
// self-loops once per second until the sample budget is spent.
type State int

const (
	Idle State = iota
	EmptyingInitial
	Filling
	WaitingToSettle
	Measuring
	EmptyingFinal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case EmptyingInitial:
		return "emptying_initial"
	case Filling:
		return "filling"
	case WaitingToSettle:
		return "waiting_to_settle"
	case Measuring:
		return "measuring"
	case EmptyingFinal:
		return "emptying_final"
	}
	return "unknown"
}

// AngleSensor yields one instantaneous tilt sample per call.
type AngleSensor interface {
	ReadAngle() (float64, error)
}

// Event marks a boundary the owning controller must react to.
type Event int

const (
	EventNone Event = iota
	// EventSampled: one angle sample was taken during Measuring.
	EventSampled
	// EventCompleted: sampling finished with at least one valid reading;
	// the result must be persisted while the chamber drains.
	EventCompleted
	// EventFailed: sampling finished with zero valid readings; nothing to
	// persist, the chamber still drains.
	EventFailed
	// EventFinished: the chamber is drained and the sequencer is Idle again.
	EventFinished
)

// Result is a snapshot of the run's sampling accumulator.
type Result struct {
	MeanAngle     float64 // mean of valid samples, 0 when none
	ValidReadings int
	Samples       int
	LastSample    float64 // most recent raw sample, NaN on sensor error
}

var ErrBusy = errors.New("measurement already in progress")

const (
	settleDelay  = time.Second // chamber rest before filling starts
	samplePeriod = time.Second
)

// Sequencer is the non-blocking run state machine. It is advanced by repeated
// Tick calls from the control loop and never sleeps or blocks; every
// transition is a function of the current state, the elapsed time since state
// entry, and the durations latched when the state was entered. Mid-run
// configuration edits therefore only affect states not yet entered.
//
// The Sequencer is not self-locking; the owning Controller serialises access.
type Sequencer struct {
	fill   hal.DigitalOutputPin
	empty  hal.DigitalOutputPin
	sensor AngleSensor
	now    func() time.Time

	state         State
	enteredAt     time.Time
	stateDuration time.Duration
	lastSampleAt  time.Time
	targetSamples int

	angleSum      float64
	validReadings int
	samples       int
	lastSample    float64
}

func NewSequencer(fill, empty hal.DigitalOutputPin, sensor AngleSensor, now func() time.Time) *Sequencer {
	return &Sequencer{fill: fill, empty: empty, sensor: sensor, now: now}
}

func (s *Sequencer) State() State { return s.state }

// Busy reports whether a run is anywhere between start and the return to Idle.
func (s *Sequencer) Busy() bool { return s.state != Idle }

// Progress returns samples taken so far and the run's sample budget.
func (s *Sequencer) Progress() (taken, target int) {
	return s.samples, s.targetSamples
}

// Start begins a run. Only valid from Idle.
func (s *Sequencer) Start() error {
	if s.state != Idle {
		return ErrBusy
	}
	// Make sure the drain is shut before liquid comes in
	_ = s.empty.Write(false)
	s.angleSum = 0
	s.validReadings = 0
	s.samples = 0
	s.targetSamples = 0
	s.lastSample = math.NaN()
	s.enter(EmptyingInitial, settleDelay)
	return nil
}

func (s *Sequencer) enter(st State, d time.Duration) {
	s.state = st
	s.enteredAt = s.now()
	s.stateDuration = d
}

// Tick evaluates the current state's transition condition once. cfg supplies
// the durations for states entered during this tick.
func (s *Sequencer) Tick(cfg Config) (Event, Result) {
	if s.state == Idle {
		return EventNone, Result{}
	}
	now := s.now()
	elapsed := now.Sub(s.enteredAt)

	switch s.state {
	case EmptyingInitial:
		if elapsed >= s.stateDuration {
			_ = s.fill.Write(true)
			s.enter(Filling, time.Duration(cfg.FillDuration)*time.Second)
		}

	case Filling:
		if elapsed >= s.stateDuration {
			_ = s.fill.Write(false)
			s.enter(WaitingToSettle, time.Duration(cfg.WaitDuration)*time.Second)
		}

	case WaitingToSettle:
		if elapsed >= s.stateDuration {
			s.enter(Measuring, 0)
			s.targetSamples = cfg.MeasurementDuration
			s.lastSampleAt = now
		}

	case Measuring:
		if now.Sub(s.lastSampleAt) < samplePeriod {
			break
		}
		if s.samples < s.targetSamples {
			angle, err := s.sensor.ReadAngle()
			if err != nil {
				angle = math.NaN()
			}
			// Reject samples outside the plausible band; a probe
			// cannot tilt past vertical.
			if err == nil && math.Abs(angle) < 90 {
				s.angleSum += angle
				s.validReadings++
			}
			s.samples++
			s.lastSample = angle
			s.lastSampleAt = now
			return EventSampled, s.result()
		}
		_ = s.empty.Write(true)
		s.enter(EmptyingFinal, time.Duration(cfg.EmptyDuration)*time.Second)
		if s.validReadings > 0 {
			return EventCompleted, s.result()
		}
		return EventFailed, s.result()

	case EmptyingFinal:
		if elapsed >= s.stateDuration {
			_ = s.empty.Write(false)
			s.state = Idle
			return EventFinished, s.result()
		}
	}
	return EventNone, Result{}
}

func (s *Sequencer) result() Result {
	r := Result{
		ValidReadings: s.validReadings,
		Samples:       s.samples,
		LastSample:    s.lastSample,
	}
	if s.validReadings > 0 {
		r.MeanAngle = s.angleSum / float64(s.validReadings)
	}
	return r
}
