// Package display renders the two status panels. Pages alternate on every
// refresh so both the configured target and the live state get screen time on
// a 4-line panel.
package display

import (
	"fmt"
	"time"

	"github.com/claybath/densimeter/controller/diag"
	"github.com/claybath/densimeter/controller/drivers"
	"github.com/claybath/densimeter/controller/modules/measurement"
)

// Controller drives the panel from measurement status snapshots. A nil screen
// is fine; the instrument runs headless and refreshes become no-ops.
type Controller struct {
	screen drivers.CharDisplay
	status func() measurement.Status
	now    func() time.Time
	diag   *diag.Logger

	page   int
	failed bool
}

func New(screen drivers.CharDisplay, status func() measurement.Status, now func() time.Time, d *diag.Logger) *Controller {
	return &Controller{screen: screen, status: status, now: now, diag: d}
}

// Refresh redraws the panel and flips to the other page for next time.
func (c *Controller) Refresh() {
	if c.screen == nil {
		return
	}
	st := c.status()
	var lines []string
	if c.page == 0 {
		lines = pageTargets(st)
	} else {
		lines = pageStatus(st, c.now())
	}
	c.page = (c.page + 1) % 2

	if err := c.screen.ShowLines(lines...); err != nil {
		// Report a flaky panel once, not every 3 seconds
		if !c.failed {
			c.diag.Logf("Display update failed: %v", err)
			c.failed = true
		}
		return
	}
	c.failed = false
}

func pageTargets(st measurement.Status) []string {
	last := "--"
	if st.LastMeasurement > 0 {
		last = fmt.Sprintf("%.3f", st.LastMeasurement)
	}
	return []string{
		"DESIRED DENSITY",
		fmt.Sprintf("%.3f", st.DesiredDensity),
		"LAST MEASUREMENT",
		last,
	}
}

func pageStatus(st measurement.Status, now time.Time) []string {
	next := "NO SCHEDULED MEAS"
	if st.HasScheduledMeasurement {
		next = "NEXT " + time.Unix(st.NextMeasurementTime, 0).Format("15:04 02/01/06")
	}
	return []string{
		next,
		now.Format("15:04:05 02/01"),
		stateLabel(st),
	}
}

func stateLabel(st measurement.Status) string {
	switch st.State {
	case "emptying_initial":
		return "PREPARING"
	case "filling":
		return "FILLING"
	case "waiting_to_settle":
		return "SETTLING"
	case "measuring":
		return fmt.Sprintf("MEAS %d/%d", st.SampleCount, st.SampleTarget)
	case "emptying_final":
		return "EMPTYING"
	}
	return "READY"
}
