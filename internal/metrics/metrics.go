package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the collectors for one process. Each instance owns its registry
// so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	siteOutcomes *prometheus.CounterVec
	runDuration  prometheus.Histogram
	slaveSyncs   *prometheus.CounterVec
	degraded     *prometheus.GaugeVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		siteOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_site_outcomes_total",
			Help: "Per-site fetch cycle outcomes by stage reached.",
		}, []string{"stage", "result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_run_duration_seconds",
			Help:    "Wall time of a full site loop.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		slaveSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_slave_syncs_total",
			Help: "Slave store-object syncs by result.",
		}, []string{"result"}),
		degraded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_upstream_degraded",
			Help: "1 while the upstream weather API keeps failing consecutive requests.",
		}, []string{"source"}),
	}

	m.Registry.MustRegister(
		m.siteOutcomes,
		m.runDuration,
		m.slaveSyncs,
		m.degraded,
		collectors.NewGoCollector(),
	)
	return m
}

// SiteOutcome counts one site cycle. stage is where the cycle ended.
func (m *Metrics) SiteOutcome(stage string, ok bool) {
	if m == nil {
		return
	}
	m.siteOutcomes.WithLabelValues(stage, result(ok)).Inc()
}

// RunDuration records how long a full loop took.
func (m *Metrics) RunDuration(seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
}

// SlaveSync counts one slave sync attempt.
func (m *Metrics) SlaveSync(ok bool) {
	if m == nil {
		return
	}
	m.slaveSyncs.WithLabelValues(result(ok)).Inc()
}

// UpstreamDegraded flags or clears the degraded state of a weather source.
func (m *Metrics) UpstreamDegraded(source string, degraded bool) {
	if m == nil {
		return
	}
	v := 0.0
	if degraded {
		v = 1
	}
	m.degraded.WithLabelValues(source).Set(v)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
