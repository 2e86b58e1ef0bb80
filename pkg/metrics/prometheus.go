// Package metrics provides Prometheus metrics for archive resolution runs.
//
// The tools run as short-lived batch commands, so metrics are collected on a
// private registry and written to a node_exporter textfile at the end of a
// run instead of being served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for resolved entries.
const (
	OutcomeAlreadyResolved = "already_resolved"
	OutcomeLedger          = "ledger"
	OutcomeStale           = "stale_decision"
	OutcomeAlias           = "alias"
	OutcomeAutoAssigned    = "auto_assigned"
	OutcomeMinted          = "minted"
	OutcomeUncertain       = "uncertain"
	OutcomeDuplicate       = "duplicate"
)

// Manager holds the metrics of one process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	entriesResolved *prometheus.CounterVec
	similarity      prometheus.Histogram
	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runnersTotal    prometheus.Gauge
	pendingResults  *prometheus.GaugeVec
	lastRunUnix     prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // private registry without Go runtime collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "racearchive",
		subsystem:        "resolver",
		histogramBuckets: []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.92, 0.95, 0.98, 1.0},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.entriesResolved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entries_total",
		Help:      "Result entries processed, by resolution outcome",
	}, []string{"outcome"})

	m.similarity = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "best_similarity",
		Help:      "Best gated similarity found for each fuzzy-matched entry",
		Buckets:   m.histogramBuckets,
	})

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Command runs by command and status",
	}, []string{"command", "status"})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a command run",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command"})

	m.runnersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runners",
		Help:      "Runners in the last recomputed runner database",
	})

	m.pendingResults = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_results",
		Help:      "Results left without a runner_id after the last match run",
	}, []string{"year"})

	m.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time at which the last run finished",
	})
}

// RecordOutcome increments the entry counter for outcome.
func RecordOutcome(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.entriesResolved.WithLabelValues(outcome).Inc()
}

// ObserveSimilarity records the best similarity found for an entry.
func ObserveSimilarity(score float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.similarity.Observe(score)
}

// ObserveRun records a finished command run.
func ObserveRun(command string, err error, d time.Duration) {
	if !globalManager.enabled {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	globalManager.runs.WithLabelValues(command, status).Inc()
	globalManager.runDuration.WithLabelValues(command).Observe(d.Seconds())
	globalManager.lastRunUnix.Set(float64(time.Now().Unix()))
}

// UpdateRunners sets the runner count gauge.
func UpdateRunners(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.runnersTotal.Set(float64(count))
}

// UpdatePending sets the pending results gauge for year.
func UpdatePending(year, count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.pendingResults.WithLabelValues(fmt.Sprint(year)).Set(float64(count))
}

// SetEnabled turns collection by the package-level helpers on or off.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// Enabled reports whether the package-level helpers collect metrics.
func Enabled() bool {
	return globalManager.enabled
}

// WriteTextfile writes the registry in text exposition format to path.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
