// Package daemon assembles the controller: hardware drivers, persistence,
// the subsystem modules, the cooperative tick loop and the HTTP surface.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/reef-pi/hal"
	"github.com/reef-pi/rpi/i2c"
	"github.com/robfig/cron/v3"

	"github.com/claybath/densimeter/controller"
	"github.com/claybath/densimeter/controller/clock"
	"github.com/claybath/densimeter/controller/diag"
	"github.com/claybath/densimeter/controller/drivers"
	"github.com/claybath/densimeter/controller/modules/datalog"
	"github.com/claybath/densimeter/controller/modules/display"
	"github.com/claybath/densimeter/controller/modules/measurement"
	"github.com/claybath/densimeter/controller/storage"
	"github.com/claybath/densimeter/controller/telemetry"
)

type App struct {
	settings controller.Settings

	store storage.Store
	clk   clock.Clock
	dg    *diag.Logger
	tele  *telemetry.Telemetry
	bus   i2c.Bus

	fill      hal.DigitalOutputPin
	empty     hal.DigitalOutputPin
	indicator hal.DigitalOutputPin

	measurement *measurement.Controller
	datalog     *datalog.Controller
	display     *display.Controller

	cron      *cron.Cron
	server    *http.Server
	startedAt time.Time
}

// controller.Controller, handed to the modules
func (a *App) Store() storage.Store           { return a.store }
func (a *App) Clock() clock.Clock             { return a.clk }
func (a *App) Telemetry() *telemetry.Telemetry { return a.tele }
func (a *App) Diag() *diag.Logger             { return a.dg }

// New builds the controller. In dev mode every hardware dependency is
// replaced with an in-memory stand-in; on real hardware a missing tilt sensor
// aborts startup while a missing display or RTC only degrades.
func New(s controller.Settings) (*App, error) {
	a := &App{settings: s}

	store, err := storage.NewStore(s.Database)
	if err != nil {
		return nil, err
	}
	a.store = store

	var rtc clock.RTC
	if !s.Dev {
		bus, err := i2c.New()
		if err != nil {
			return nil, fmt.Errorf("daemon: open i2c bus: %w", err)
		}
		a.bus = bus
		if dev, err := drivers.NewDS3231(bus, s.I2C.RTCAddress); err != nil {
			log.Printf("daemon: rtc unavailable, using system clock: %v", err)
		} else {
			if lost, _ := dev.LostPower(); lost {
				log.Printf("daemon: rtc lost power, seeding from system clock")
				_ = dev.SetTime(time.Now())
			}
			rtc = dev
		}
	}
	clk, err := clock.New(rtc)
	if err != nil {
		return nil, fmt.Errorf("daemon: clock: %w", err)
	}
	a.clk = clk
	a.dg = diag.NewLogger(diag.NewBuffer(diag.DefaultCapacity), clk.Now)

	var sensor measurement.AngleSensor
	var screen drivers.CharDisplay
	if s.Dev {
		sensor = drivers.NewSimulatedSensor(42.5)
		a.fill = drivers.NewSoftPin("fill", s.GPIO.FillPin)
		a.empty = drivers.NewSoftPin("empty", s.GPIO.EmptyPin)
		a.indicator = drivers.NewSoftPin("indicator", s.GPIO.IndicatorPin)
		a.dg.Logf("Running in dev mode, hardware is simulated")
	} else {
		for _, addr := range drivers.ScanBus(a.bus) {
			a.dg.Logf("I2C device found at address 0x%02x", addr)
		}
		mpu, err := drivers.NewMPU6050(a.bus, s.I2C.SensorAddress)
		if err != nil {
			// Without the tilt sensor the instrument is useless;
			// this needs a physical fix, not a retry.
			return nil, err
		}
		sensor = mpu
		a.dg.Logf("Tilt sensor initialized")

		if scr, err := drivers.NewSSD1306(a.bus, s.I2C.DisplayAddress); err != nil {
			a.dg.Logf("Display unavailable: %v", err)
		} else {
			screen = scr
			a.dg.Logf("Display initialized")
		}

		if a.fill, err = drivers.NewOutPin(s.GPIO.Chip, s.GPIO.FillPin, "fill", s.GPIO.ActiveLow); err != nil {
			return nil, err
		}
		if a.empty, err = drivers.NewOutPin(s.GPIO.Chip, s.GPIO.EmptyPin, "empty", s.GPIO.ActiveLow); err != nil {
			return nil, err
		}
		if a.indicator, err = drivers.NewOutPin(s.GPIO.Chip, s.GPIO.IndicatorPin, "indicator", s.GPIO.ActiveLow); err != nil {
			return nil, err
		}
	}

	a.tele = telemetry.New(s.MQTT.Broker, s.MQTT.Topic)

	dl, err := datalog.New(s.DataDir, a.dg)
	if err != nil {
		return nil, err
	}
	a.datalog = dl
	a.measurement = measurement.New(a, a.fill, a.empty, a.indicator, sensor, dl)
	a.display = display.New(screen, a.measurement.Status, clk.Now, a.dg)
	return a, nil
}

func (a *App) Setup() error {
	return a.measurement.Setup()
}

// Start launches the tick loop and the HTTP server. The cron entries are the
// system's only cadence: one advances the sequencer, one redraws the display,
// one refreshes the host gauges. Every job is short and non-blocking.
func (a *App) Start() error {
	a.startedAt = time.Now()
	a.measurement.Start()

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(fmt.Sprintf("@every %dms", a.settings.TickMs), a.measurement.Tick); err != nil {
		return err
	}
	if _, err := a.cron.AddFunc(fmt.Sprintf("@every %ds", a.settings.DisplayRefreshSec), a.display.Refresh); err != nil {
		return err
	}
	if _, err := a.cron.AddFunc("@every 15s", a.tele.UpdateSystem); err != nil {
		return err
	}
	a.cron.Start()

	r := mux.NewRouter()
	a.measurement.LoadAPI(r)
	a.datalog.LoadAPI(r)
	a.dg.LoadAPI(r)
	r.Handle("/metrics", a.tele.Handler()).Methods("GET")
	r.HandleFunc("/api/health", a.health).Methods("GET")
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(a.settings.WebDir)))

	a.server = &http.Server{Addr: a.settings.Listen, Handler: r}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("daemon: http server: %v", err)
		}
	}()
	a.dg.Logf("Density measurement system initialized, listening on %s", a.settings.Listen)
	return nil
}

func (a *App) Stop() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	a.measurement.Stop()
	for _, p := range []hal.DigitalOutputPin{a.fill, a.empty, a.indicator} {
		if p != nil {
			_ = p.Close()
		}
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	a.tele.Close()
	_ = a.store.Close()
}
