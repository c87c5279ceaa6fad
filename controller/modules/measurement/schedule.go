package measurement

import "time"

// NextRun computes when the next automatic run should start; the zero time
// means none is scheduled. Scheduling only continues a chain of same-day
// measurements: once a day passes without one, or the computed slot is
// already behind the clock, a manual run is needed to re-arm it.
func NextRun(cfg Config, now time.Time) time.Time {
	if !cfg.AutoMeasurementEnabled || cfg.LastMeasurementTime == 0 {
		return time.Time{}
	}
	last := time.Unix(cfg.LastMeasurementTime, 0)
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	if ly != ny || lm != nm || ld != nd {
		return time.Time{}
	}
	next := last.Add(time.Duration(cfg.MeasurementInterval) * time.Minute)
	if next.Before(now) {
		return time.Time{}
	}
	return next
}
