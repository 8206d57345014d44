// Package metrics holds the Prometheus collectors and the /metrics + /healthz server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	fetches          *prometheus.CounterVec
	detected         *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	ticksDropped     *prometheus.CounterVec
	commands         *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifest_watch_fetch_total",
				Help: "Upstream fetches by source and result status",
			},
			[]string{"source", "status"},
		),
		detected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifest_watch_detected_items_total",
				Help: "Items classified as new or updated, by feature",
			},
			[]string{"feature"},
		),
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifest_watch_deliveries_total",
				Help: "Notification deliveries by feature and result",
			},
			[]string{"feature", "result"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manifest_watch_pipeline_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"pipeline", "status"},
		),
		ticksDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifest_watch_ticks_dropped_total",
				Help: "Scheduler ticks dropped because the previous run was still busy",
			},
			[]string{"schedule"},
		),
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifest_watch_commands_total",
				Help: "Slash command invocations by command and result",
			},
			[]string{"command", "result"},
		),
	}
}

func (m *Metrics) ObserveFetch(source, status string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(source, status).Inc()
}

func (m *Metrics) ObserveDetected(feature string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.detected.WithLabelValues(feature).Add(float64(count))
}

func (m *Metrics) ObserveDelivery(feature string, err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(feature, result(err)).Inc()
}

func (m *Metrics) ObservePipeline(pipeline string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(pipeline, result(err)).Observe(duration.Seconds())
}

func (m *Metrics) ObserveTickDropped(schedule string) {
	if m == nil {
		return
	}
	m.ticksDropped.WithLabelValues(schedule).Inc()
}

func (m *Metrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
