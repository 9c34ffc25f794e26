package metrics

import (
	"net/http"

	"crowdwatch/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all crowdwatch Prometheus metrics on a private registry so
// multiple instances (tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	SamplesTotal   prometheus.Counter
	SourceFailures prometheus.Counter
	PeopleCount    *prometheus.GaugeVec
	CrowdLevel     *prometheus.GaugeVec
	IncidentsTotal *prometheus.CounterVec
	AlertsTotal    *prometheus.CounterVec
	StreamClients  prometheus.Gauge
	NotifyFailures prometheus.Counter
	ProcessingTime prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdwatch_samples_total",
			Help: "Total detection samples received from the source",
		}),
		SourceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdwatch_source_failures_total",
			Help: "Total failed polls of the detection source",
		}),
		PeopleCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crowdwatch_people_count",
			Help: "Current people count per camera",
		}, []string{"camera"}),
		CrowdLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crowdwatch_crowd_level",
			Help: "Current crowd level per camera (0 low, 1 medium, 2 high)",
		}, []string{"camera"}),
		IncidentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crowdwatch_incidents_total",
			Help: "Incidents created, by type",
		}, []string{"type"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crowdwatch_alerts_total",
			Help: "Alerts created, by priority",
		}, []string{"priority"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crowdwatch_stream_clients",
			Help: "Connected websocket stream clients",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdwatch_notify_failures_total",
			Help: "Alert notifier deliveries that failed",
		}),
		ProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crowdwatch_detection_processing_ms",
			Help:    "Detection service processing time per sample in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m.registry.MustRegister(
		m.SamplesTotal,
		m.SourceFailures,
		m.PeopleCount,
		m.CrowdLevel,
		m.IncidentsTotal,
		m.AlertsTotal,
		m.StreamClients,
		m.NotifyFailures,
		m.ProcessingTime,
	)

	return m
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCamera records the occupancy gauges for one camera.
func (m *Metrics) ObserveCamera(cam model.Camera) {
	m.PeopleCount.WithLabelValues(cam.ID).Set(float64(cam.PeopleCount))

	level := 0.0
	switch cam.CrowdLevel {
	case model.CrowdLevelMedium:
		level = 1
	case model.CrowdLevelHigh:
		level = 2
	}
	m.CrowdLevel.WithLabelValues(cam.ID).Set(level)
}

// ForgetCamera drops the per-camera gauges after a camera is removed.
func (m *Metrics) ForgetCamera(id string) {
	m.PeopleCount.DeleteLabelValues(id)
	m.CrowdLevel.DeleteLabelValues(id)
}
