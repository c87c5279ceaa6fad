// Package telemetry exports controller metrics over prometheus and, when a
// broker is configured, publishes completed measurements over MQTT.
package telemetry

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

type Telemetry struct {
	registry *prometheus.Registry

	currentDensity prometheus.Gauge
	currentAngle   prometheus.Gauge
	lastRunTime    prometheus.Gauge
	runsCompleted  prometheus.Counter
	runsFailed     prometheus.Counter
	memUsed        prometheus.Gauge
	loadAvg        prometheus.Gauge

	mqtt  mqtt.Client
	topic string
}

// New wires the metric set. broker may be empty, in which case MQTT publishing
// is disabled.
func New(broker, topic string) *Telemetry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	t := &Telemetry{
		registry: reg,
		currentDensity: factory.NewGauge(prometheus.GaugeOpts{
			Name: "densimeter_current_density",
			Help: "Density computed by the most recent completed run.",
		}),
		currentAngle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "densimeter_current_angle_degrees",
			Help: "Calibrated probe angle from the most recent completed run.",
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "densimeter_last_run_timestamp_seconds",
			Help: "Unix time of the most recent completed run.",
		}),
		runsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "densimeter_runs_completed_total",
			Help: "Measurement runs that produced a density value.",
		}),
		runsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "densimeter_runs_failed_total",
			Help: "Measurement runs that finished with zero valid samples.",
		}),
		memUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "densimeter_memory_used_percent",
			Help: "System memory utilisation.",
		}),
		loadAvg: factory.NewGauge(prometheus.GaugeOpts{
			Name: "densimeter_load1",
			Help: "One minute system load average.",
		}),
	}
	if broker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(broker).
			SetClientID("densimeter").
			SetAutoReconnect(true).
			SetConnectRetry(true)
		t.mqtt = mqtt.NewClient(opts)
		t.topic = topic
		if tok := t.mqtt.Connect(); tok.Wait() && tok.Error() != nil {
			log.Printf("telemetry: mqtt connect: %v", tok.Error())
		}
	}
	return t
}

// EmitMeasurement records a completed run.
func (t *Telemetry) EmitMeasurement(ts time.Time, density, angle float64) {
	t.currentDensity.Set(density)
	t.currentAngle.Set(angle)
	t.lastRunTime.Set(float64(ts.Unix()))
	t.runsCompleted.Inc()

	if t.mqtt == nil || !t.mqtt.IsConnected() {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"timestamp": ts.Unix(),
		"density":   density,
		"angle":     angle,
	})
	if err != nil {
		return
	}
	t.mqtt.Publish(t.topic, 0, false, payload)
}

// EmitFailure records a run that drained with no valid samples.
func (t *Telemetry) EmitFailure() {
	t.runsFailed.Inc()
}

// UpdateSystem refreshes the host gauges. Called periodically by the app.
func (t *Telemetry) UpdateSystem() {
	if vm, err := mem.VirtualMemory(); err == nil {
		t.memUsed.Set(vm.UsedPercent)
	}
	if avg, err := load.Avg(); err == nil {
		t.loadAvg.Set(avg.Load1)
	}
}

// Handler serves the prometheus exposition endpoint.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) Close() {
	if t.mqtt != nil && t.mqtt.IsConnected() {
		t.mqtt.Disconnect(250)
	}
}
