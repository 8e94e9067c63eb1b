// Package metrics provides Prometheus metrics for the league engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the league.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Tournament metrics
	batchesPlayed   *prometheus.CounterVec
	gamesPlayed     *prometheus.CounterVec
	ratingUpdates   prometheus.Counter
	batchLatency    prometheus.Histogram
	fixturesPending prometheus.Gauge
	competitors     prometheus.Gauge

	// Simulator metrics
	simulatorSteps  prometheus.Counter
	simulatorFaults prometheus.Counter

	// Registry metrics
	registryCommitLatency prometheus.Histogram
	registryQueryLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "league",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.batchesPlayed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batches_total",
		Help:        "Total number of completed batches by mode",
		ConstLabels: m.constLabels,
	}, []string{"mode"})

	m.gamesPlayed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "games_total",
		Help:        "Total number of recorded games by outcome from the challenger's view",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.ratingUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rating_updates_total",
		Help:        "Total number of pairwise rating updates applied",
		ConstLabels: m.constLabels,
	})

	m.batchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_duration_milliseconds",
		Help:        "Wall time of one batch including persistence",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.fixturesPending = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fixtures_pending",
		Help:        "Fixtures left in the current schedule",
		ConstLabels: m.constLabels,
	})

	m.competitors = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "competitors",
		Help:        "Number of competitors in the registry",
		ConstLabels: m.constLabels,
	})

	m.simulatorSteps = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "simulator_steps_total",
		Help:        "Total number of vectorised simulator steps",
		ConstLabels: m.constLabels,
	})

	m.simulatorFaults = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "simulator_faults_total",
		Help:        "Total number of batches aborted by a simulator fault",
		ConstLabels: m.constLabels,
	})

	m.registryCommitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_commit_latency_milliseconds",
		Help:        "Latency of committing a batch to the registry",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.registryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_query_latency_milliseconds",
		Help:        "Latency of registry read queries",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})
}

// RecordBatch counts a completed batch and its wall time.
func RecordBatch(mode string, latencyMs float64) {
	globalManager.batchesPlayed.WithLabelValues(mode).Inc()
	globalManager.batchLatency.Observe(latencyMs)
}

// RecordGame counts one recorded game outcome.
func RecordGame(outcome string) {
	globalManager.gamesPlayed.WithLabelValues(outcome).Inc()
}

// RecordRatingUpdate increments the rating updates counter.
func RecordRatingUpdate() {
	globalManager.ratingUpdates.Inc()
}

// UpdateFixturesPending sets the remaining fixture count.
func UpdateFixturesPending(n int) {
	globalManager.fixturesPending.Set(float64(n))
}

// UpdateCompetitors sets the registry size.
func UpdateCompetitors(n int) {
	globalManager.competitors.Set(float64(n))
}

// RecordSimulatorStep increments the simulator step counter.
func RecordSimulatorStep() {
	globalManager.simulatorSteps.Inc()
}

// RecordSimulatorFault increments the simulator fault counter.
func RecordSimulatorFault() {
	globalManager.simulatorFaults.Inc()
}

// RecordRegistryCommitLatency records batch commit latency.
func RecordRegistryCommitLatency(latencyMs float64) {
	globalManager.registryCommitLatency.Observe(latencyMs)
}

// RecordRegistryQueryLatency records registry read latency.
func RecordRegistryQueryLatency(latencyMs float64) {
	globalManager.registryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the current registry in the text exposition format,
// for node_exporter's textfile collector after offline runs.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrObserveFailed, err)
	}
	return nil
}
