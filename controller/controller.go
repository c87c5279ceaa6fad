// Package controller defines the interface subsystem modules program against
// and the boot-time settings for the daemon.
package controller

import (
	"github.com/claybath/densimeter/controller/clock"
	"github.com/claybath/densimeter/controller/diag"
	"github.com/claybath/densimeter/controller/storage"
	"github.com/claybath/densimeter/controller/telemetry"
)

// Controller is what the daemon hands to each subsystem.
type Controller interface {
	Store() storage.Store
	Clock() clock.Clock
	Telemetry() *telemetry.Telemetry
	Diag() *diag.Logger
}
