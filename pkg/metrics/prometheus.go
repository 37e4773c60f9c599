// Package metrics provides Prometheus metrics for the vault sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the sync engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Sync metrics
	syncsTotal   *prometheus.CounterVec
	syncDuration prometheus.Histogram
	batchSize    prometheus.Gauge

	// Upstream source metrics
	sourceFetches *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	circuitOpens  *prometheus.CounterVec

	// Reconciliation metrics
	snapshotCases      *prometheus.CounterVec
	vaultSlotsUnlocked *prometheus.CounterVec
	trackedCharacters  prometheus.Gauge

	// Error metrics
	errorRateByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vaultsync",
		subsystem:        "engine",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.syncsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "syncs_total",
		Help:        "Character syncs by outcome (ok, partial, failed, busy)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.syncDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sync_duration_milliseconds",
		Help:        "End-to-end duration of a character sync in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.batchSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_size",
		Help:        "Number of characters in the most recent batch",
		ConstLabels: m.constLabels,
	})

	m.sourceFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_fetches_total",
		Help:        "Upstream fetches by source and status (ok, no_data, error, skipped)",
		ConstLabels: m.constLabels,
	}, []string{"source", "status"})

	m.sourceLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_latency_milliseconds",
		Help:        "Upstream fetch latency in milliseconds including retries",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limited_total",
		Help:        "Upstream calls that gave up on a rate limit response",
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.circuitOpens = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "circuit_opens_total",
		Help:        "Times an upstream circuit entered cooldown",
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.snapshotCases = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_cases_total",
		Help:        "Encounter baseline policy applied (same_week, new_week, first_sync)",
		ConstLabels: m.constLabels,
	}, []string{"case"})

	m.vaultSlotsUnlocked = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "vault_slots_unlocked_total",
		Help:        "Unlocked vault slots reported by syncs, by kind (raid, dungeon, world)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.trackedCharacters = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tracked_characters",
		Help:        "Characters with a stored baseline",
		ConstLabels: m.constLabels,
	})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and error type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_bytes",
		Help:        "Allocated heap bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutines",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordSync counts a finished character sync and its duration.
func RecordSync(outcome string, durationMs float64) {
	globalManager.syncsTotal.WithLabelValues(outcome).Inc()
	globalManager.syncDuration.Observe(durationMs)
}

// UpdateBatchSize sets the size of the current batch.
func UpdateBatchSize(n int) {
	globalManager.batchSize.Set(float64(n))
}

// RecordSourceFetch counts an upstream fetch.
func RecordSourceFetch(source, status string) {
	globalManager.sourceFetches.WithLabelValues(source, status).Inc()
}

// RecordSourceLatency records an upstream fetch latency in milliseconds.
func RecordSourceLatency(source string, latencyMs float64) {
	globalManager.sourceLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordRateLimited counts a call abandoned on a rate limit.
func RecordRateLimited(source string) {
	globalManager.rateLimited.WithLabelValues(source).Inc()
}

// RecordCircuitOpen counts a circuit entering cooldown.
func RecordCircuitOpen(source string) {
	globalManager.circuitOpens.WithLabelValues(source).Inc()
}

// RecordSnapshotCase counts the encounter baseline policy used by a sync.
func RecordSnapshotCase(c string) {
	globalManager.snapshotCases.WithLabelValues(c).Inc()
}

// RecordVaultSlots adds unlocked slot counts per kind.
func RecordVaultSlots(raid, dungeon, world int) {
	globalManager.vaultSlotsUnlocked.WithLabelValues("raid").Add(float64(raid))
	globalManager.vaultSlotsUnlocked.WithLabelValues("dungeon").Add(float64(dungeon))
	globalManager.vaultSlotsUnlocked.WithLabelValues("world").Add(float64(world))
}

// UpdateTrackedCharacters sets the number of stored baselines.
func UpdateTrackedCharacters(n int) {
	globalManager.trackedCharacters.Set(float64(n))
}

// RecordErrorByComponent records an error by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
