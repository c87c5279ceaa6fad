package measurement

import (
	"fmt"
	"sync"
	"time"

	"github.com/reef-pi/hal"

	"github.com/claybath/densimeter/controller"
)

// Recorder is the append-only measurement log at its interface boundary.
type Recorder interface {
	Append(ts time.Time, density, angle float64) error
}

// Controller owns the measurement subsystem: the persisted settings, the run
// sequencer, the schedule state and the actuator pins. All shared state is
// guarded by mu; API handlers and the tick loop both go through it.
type Controller struct {
	c         controller.Controller
	recorder  Recorder
	fill      hal.DigitalOutputPin
	empty     hal.DigitalOutputPin
	indicator hal.DigitalOutputPin
	sensor    AngleSensor

	mu         sync.Mutex
	config     Config
	seq        *Sequencer
	nextRun    time.Time // zero = nothing scheduled
	manualMode bool

	currentAngle   float64 // calibrated angle of the last completed run
	currentDensity float64
}

func New(c controller.Controller, fill, empty, indicator hal.DigitalOutputPin, sensor AngleSensor, rec Recorder) *Controller {
	m := &Controller{
		c:         c,
		recorder:  rec,
		fill:      fill,
		empty:     empty,
		indicator: indicator,
		sensor:    sensor,
	}
	m.seq = NewSequencer(fill, empty, sensor, func() time.Time { return c.Clock().Now() })
	return m
}

// Setup loads the settings document, falling back to compiled-in defaults
// when the store has nothing usable, and derives the initial schedule.
func (m *Controller) Setup() error {
	if err := m.c.Store().CreateBucket(Bucket); err != nil {
		return err
	}
	var cfg Config
	if err := m.c.Store().Get(Bucket, configID, &cfg); err != nil {
		m.c.Diag().Logf("Settings not found, creating default configuration")
		cfg = DefaultConfig()
		if err := m.c.Store().Update(Bucket, configID, &cfg); err != nil {
			return fmt.Errorf("measurement: persist defaults: %w", err)
		}
	} else if err := cfg.Validate(); err != nil {
		m.c.Diag().Logf("Stored settings invalid (%v), reverting to defaults", err)
		cfg = DefaultConfig()
		if err := m.c.Store().Update(Bucket, configID, &cfg); err != nil {
			return fmt.Errorf("measurement: persist defaults: %w", err)
		}
	} else {
		m.c.Diag().Logf("Configuration loaded")
		if cfg.LastMeasurementTime > 0 {
			m.currentDensity = cfg.LastMeasurementValue
			m.currentAngle = cfg.LastMeasurementAngle
			m.c.Diag().Logf("Last measurement restored: %.4f at %s",
				cfg.LastMeasurementValue, time.Unix(cfg.LastMeasurementTime, 0).Format("2006-01-02 15:04:05"))
		}
	}

	m.mu.Lock()
	m.config = cfg
	m.recomputeScheduleLocked()
	m.mu.Unlock()
	return nil
}

// Start closes both solenoids and puts the indicator in its idle position.
func (m *Controller) Start() {
	_ = m.fill.Write(false)
	_ = m.empty.Write(false)
	_ = m.indicator.Write(false)
	m.c.Diag().Logf("Measurement subsystem ready")
}

func (m *Controller) Stop() {
	_ = m.fill.Write(false)
	_ = m.empty.Write(false)
	_ = m.indicator.Write(false)
}

// StartRun begins a measurement cycle; source tags the diagnostic line.
func (m *Controller) StartRun(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.seq.Start(); err != nil {
		return err
	}
	m.c.Diag().Logf("Starting measurement sequence (%s)", source)
	return nil
}

// Tick advances the sequencer one step, evaluates the automatic trigger and
// refreshes the indicator relay. Called once per control-loop tick.
func (m *Controller) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, res := m.seq.Tick(m.config)
	switch ev {
	case EventSampled:
		m.c.Diag().Logf("Measurement %d/%d - Angle: %.2f deg", res.Samples, m.config.MeasurementDuration, res.LastSample)
	case EventCompleted:
		m.completeLocked(res)
	case EventFailed:
		m.c.Telemetry().EmitFailure()
		m.c.Diag().Logf("No valid readings obtained during measurement")
		m.c.Diag().Logf("Emptying chamber...")
	case EventFinished:
		m.recomputeScheduleLocked()
		m.c.Diag().Logf("Measurement sequence complete")
	}

	// Automatic trigger: only from rest, never in manual mode
	now := m.c.Clock().Now()
	if !m.seq.Busy() && !m.manualMode && m.config.AutoMeasurementEnabled &&
		!m.nextRun.IsZero() && !now.Before(m.nextRun) {
		if err := m.seq.Start(); err == nil {
			m.c.Diag().Logf("Automatic measurement triggered")
		}
	}

	_ = m.indicator.Write(m.seq.Busy())
}

// completeLocked persists a finished sample set while the chamber drains.
func (m *Controller) completeLocked(res Result) {
	now := m.c.Clock().Now()
	angle, density := Convert(res.MeanAngle, m.config)
	m.currentAngle = angle
	m.currentDensity = density

	m.config.LastMeasurementValue = density
	m.config.LastMeasurementAngle = angle
	m.config.LastMeasurementTime = now.Unix()
	if err := m.c.Store().Update(Bucket, configID, &m.config); err != nil {
		m.c.Diag().Logf("Failed to persist measurement result: %v", err)
	}
	if err := m.recorder.Append(now, density, angle); err != nil {
		m.c.Diag().Logf("Failed to record measurement: %v", err)
	}
	m.c.Telemetry().EmitMeasurement(now, density, angle)

	m.c.Diag().Logf("Measurement completed - Angle: %.2f deg, Density: %.4f, Valid readings: %d/%d",
		angle, density, res.ValidReadings, res.Samples)
	m.c.Diag().Logf("Emptying chamber...")
}

func (m *Controller) recomputeScheduleLocked() {
	m.nextRun = NextRun(m.config, m.c.Clock().Now())
	if m.nextRun.IsZero() {
		m.c.Diag().Logf("No automatic measurement scheduled")
	} else {
		m.c.Diag().Logf("Next measurement scheduled for %s", m.nextRun.Format("2006-01-02 15:04:05"))
	}
}

// Status is the snapshot served by /api/status and read by the display.
type Status struct {
	CurrentAngle            float64 `json:"currentAngle"`
	CurrentDensity          float64 `json:"currentDensity"`
	DesiredDensity          float64 `json:"desiredDensity"`
	LastMeasurement         float64 `json:"lastMeasurement"`
	LastMeasurementTime     int64   `json:"lastMeasurementTime"`
	NextMeasurementTime     int64   `json:"nextMeasurementTime"`
	HasScheduledMeasurement bool    `json:"hasScheduledMeasurement"`
	IsMeasuring             bool    `json:"isMeasuring"`
	IsManualMode            bool    `json:"isManualMode"`
	AutoMeasurementEnabled  bool    `json:"autoMeasurementEnabled"`
	State                   string  `json:"state"`
	SampleCount             int     `json:"sampleCount"`
	SampleTarget            int     `json:"sampleTarget"`
	TargetAngleMin          float64 `json:"targetAngleMin"`
	TargetAngleMax          float64 `json:"targetAngleMax"`
}

func (m *Controller) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	taken, target := m.seq.Progress()
	st := Status{
		CurrentAngle:            m.currentAngle,
		CurrentDensity:          m.currentDensity,
		DesiredDensity:          m.config.DesiredDensity,
		LastMeasurement:         m.config.LastMeasurementValue,
		LastMeasurementTime:     m.config.LastMeasurementTime,
		IsMeasuring:             m.seq.Busy(),
		IsManualMode:            m.manualMode,
		AutoMeasurementEnabled:  m.config.AutoMeasurementEnabled,
		State:                   m.seq.State().String(),
		SampleCount:             taken,
		SampleTarget:            target,
		TargetAngleMin:          m.config.TargetAngleMin,
		TargetAngleMax:          m.config.TargetAngleMax,
	}
	if !m.nextRun.IsZero() {
		st.NextMeasurementTime = m.nextRun.Unix()
		st.HasScheduledMeasurement = true
	}
	return st
}

// Config returns a copy of the current settings.
func (m *Controller) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// UpdateConfig merge-applies a partial settings document: fields absent from
// the request keep their current values, and the last-result fields cannot be
// written from the outside.
func (m *Controller) UpdateConfig(apply func(*Config) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := m.config
	if err := apply(&updated); err != nil {
		return err
	}
	// The sequencer is the sole writer of the last-result fields
	updated.LastMeasurementValue = m.config.LastMeasurementValue
	updated.LastMeasurementAngle = m.config.LastMeasurementAngle
	updated.LastMeasurementTime = m.config.LastMeasurementTime

	if err := updated.Validate(); err != nil {
		return err
	}
	if err := m.c.Store().Update(Bucket, configID, &updated); err != nil {
		return err
	}
	m.config = updated
	m.recomputeScheduleLocked()
	m.c.Diag().Logf("Configuration updated")
	return nil
}

// SetManualMode flips the manual-only flag gating automatic triggering.
func (m *Controller) SetManualMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualMode = on
	if on {
		m.c.Diag().Logf("Manual mode enabled, automatic measurements paused")
	} else {
		m.c.Diag().Logf("Manual mode disabled")
	}
}

// RecomputeSchedule re-derives the next-run time, e.g. after the wall clock
// was adjusted.
func (m *Controller) RecomputeSchedule() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputeScheduleLocked()
}
