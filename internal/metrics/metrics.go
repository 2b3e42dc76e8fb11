// Package metrics exposes control loop counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"controlling_roaster/internal/port"
	"controlling_roaster/internal/protocol"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roaster"

// Fault kinds used as the "kind" label.
const (
	FaultFraming   = "framing"
	FaultChecksum  = "checksum"
	FaultShortRead = "short_read"
	FaultIO        = "io"
	FaultOther     = "other"
)

// Command reasons used as the "reason" label.
const (
	ReasonControl = "control"
	ReasonSafety  = "safety"
)

// Metrics groups the loop's collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	ticks        prometheus.Counter
	readRetries  prometheus.Counter
	frameFaults  *prometheus.CounterVec
	commandsSent *prometheus.CounterVec
	writeFaults  prometheus.Counter
	safetyTrips  prometheus.Counter
	auditDropped prometheus.Counter
	beanTemp     prometheus.Gauge
	envTemp      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Control loop ticks executed.",
		}),
		readRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_retries_total",
			Help: "Frame reads retried after a malformed or short frame.",
		}),
		frameFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frame_faults_total",
			Help: "Telemetry read faults by kind.",
		}, []string{"kind"}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_sent_total",
			Help: "Control frames written, by reason.",
		}, []string{"reason"}),
		writeFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_faults_total",
			Help: "Control frame writes that failed.",
		}),
		safetyTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "safety_trips_total",
			Help: "Times the over-temperature interlock engaged.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "audit_events_dropped_total",
			Help: "Audit events dropped because the writer queue was full.",
		}),
		beanTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bean_temperature_celsius",
			Help: "Smoothed bean temperature.",
		}),
		envTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "environment_temperature_celsius",
			Help: "Smoothed environment temperature.",
		}),
	}
	reg.MustRegister(
		m.ticks, m.readRetries, m.frameFaults, m.commandsSent,
		m.writeFaults, m.safetyTrips, m.auditDropped, m.beanTemp, m.envTemp,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Tick()       { m.ticks.Inc() }
func (m *Metrics) ReadRetry()  { m.readRetries.Inc() }
func (m *Metrics) SafetyTrip() { m.safetyTrips.Inc() }
func (m *Metrics) WriteFault() { m.writeFaults.Inc() }

// AuditDropped counts an audit event that could not be queued.
func (m *Metrics) AuditDropped() { m.auditDropped.Inc() }

// CommandSent counts a written control frame.
func (m *Metrics) CommandSent(reason string) {
	m.commandsSent.WithLabelValues(reason).Inc()
}

// FrameFault counts a read fault, classified from its error.
func (m *Metrics) FrameFault(err error) {
	m.frameFaults.WithLabelValues(FaultKind(err)).Inc()
}

// Temperatures records the smoothed readings.
func (m *Metrics) Temperatures(bt, et float64) {
	m.beanTemp.Set(bt)
	m.envTemp.Set(et)
}

// FaultKind maps an error from the port or codec to its label.
func FaultKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrFraming):
		return FaultFraming
	case errors.Is(err, protocol.ErrChecksum):
		return FaultChecksum
	case errors.Is(err, protocol.ErrShortRead):
		return FaultShortRead
	case errors.Is(err, port.ErrIO):
		return FaultIO
	default:
		return FaultOther
	}
}
