package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal     *prometheus.CounterVec
	AnalysesTotal    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	ActiveSessions   prometheus.Gauge
}

// NewMetrics registers the collectors on a private registry so that several
// instances can coexist in one process
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepfake_uploads_total",
			Help: "The total number of files offered for upload",
		}, []string{"result"}), // 'accepted', 'rejected'
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepfake_analyses_total",
			Help: "The total number of completed analyses by verdict",
		}, []string{"verdict"}), // 'deepfake', 'authentic'
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepfake_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // 'validation', 'precondition', 'transport'
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "deepfake_analysis_duration_seconds",
			Help:    "Time spent waiting for the inference endpoint",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deepfake_active_sessions",
			Help: "Number of upload sessions currently held in memory",
		}),
	}
}

func (m *Metrics) IncUploads(result string) {
	m.UploadsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAnalyses(verdict string) {
	m.AnalysesTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncErrors(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) ObserveAnalysis(seconds float64) {
	m.AnalysisDuration.Observe(seconds)
}

func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
