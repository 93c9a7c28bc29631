// Package metrics provides Prometheus metrics for the admin console.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the console.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Page traffic served to administrators
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Calls made to the marketplace backend
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec

	// Session lifecycle
	sessionsCreated     prometheus.Counter
	sessionsInvalidated *prometheus.CounterVec
	activeSessions      prometheus.Gauge

	// Screen behaviour
	authAttempts        *prometheus.CounterVec
	validationFailures  *prometheus.CounterVec
	fetchesSuperseded   *prometheus.CounterVec
	talentStatusChanges *prometheus.CounterVec

	// Error breakdown
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// process holds the manager the package-level helpers record into.
type process struct {
	manager  *Manager
	registry *prometheus.Registry
}

var active atomic.Pointer[process] //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // helpers must work before Init is called
	Init()
}

// Init replaces the process-wide manager with one built from opts on a fresh
// registry, and returns it. Handlers exposing GetRegistry must be built after.
func Init(opts ...Option) *Manager {
	reg := prometheus.NewRegistry()
	opts = append(opts[:len(opts):len(opts)], WithPrometheusRegistry(reg))
	m := NewManager(opts...)
	active.Store(&process{manager: m, registry: reg})
	return m
}

func current() *Manager { return active.Load().manager }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "talentiave",
		subsystem:        "cms",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of console page requests by route and method",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "Console page latency in milliseconds, upstream calls included",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.upstreamRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("upstream_requests_total"),
			Help:        "Calls issued to the marketplace backend by endpoint, method and status",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.upstreamLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("upstream_latency_milliseconds"),
			Help:        "Marketplace backend round-trip latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method"},
	)

	m.upstreamErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("upstream_errors_total"),
			Help:        "Failed backend calls by endpoint and kind (transport, api, decode)",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "kind"},
	)

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("sessions_created_total"),
		Help:        "Sessions that received a credential after login or registration",
		ConstLabels: constLabels,
	})

	m.sessionsInvalidated = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("sessions_invalidated_total"),
			Help:        "Credentials cleared, by reason (logout, forbidden)",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("active_sessions"),
		Help:        "Sessions currently held by the in-memory store",
		ConstLabels: constLabels,
	})

	m.authAttempts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("auth_attempts_total"),
			Help:        "Login and registration submissions by form and outcome",
			ConstLabels: constLabels,
		},
		[]string{"form", "outcome"},
	)

	m.validationFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("validation_failures_total"),
			Help:        "Submissions blocked by client-side validation, by form",
			ConstLabels: constLabels,
		},
		[]string{"form"},
	)

	m.fetchesSuperseded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("fetches_superseded_total"),
			Help:        "Fetch cycles cancelled because a newer cycle for the same view started",
			ConstLabels: constLabels,
		},
		[]string{"view"},
	)

	m.talentStatusChanges = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("talent_status_changes_total"),
			Help:        "Talent activations and deactivations applied",
			ConstLabels: constLabels,
		},
		[]string{"action"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Error rate by type and severity",
			ConstLabels: constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Error rate by console route",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "Heap bytes allocated",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauge-style metrics should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RecordHTTPRequest records a console page request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records console page latency.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordUpstreamRequest records one backend call and its latency.
func (m *Manager) RecordUpstreamRequest(endpoint, method, statusCode string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.upstreamLatency.WithLabelValues(endpoint, method).Observe(latencyMs)
}

// RecordUpstreamError records a failed backend call.
func (m *Manager) RecordUpstreamError(endpoint, kind string) {
	if m.enabled {
		m.upstreamErrors.WithLabelValues(endpoint, kind).Inc()
	}
}

// RecordSessionCreated counts a session that received a credential.
func (m *Manager) RecordSessionCreated() {
	if m.enabled {
		m.sessionsCreated.Inc()
	}
}

// RecordSessionInvalidated counts a cleared credential.
func (m *Manager) RecordSessionInvalidated(reason string) {
	if m.enabled {
		m.sessionsInvalidated.WithLabelValues(reason).Inc()
	}
}

// UpdateActiveSessions sets the active sessions gauge.
func (m *Manager) UpdateActiveSessions(count int) {
	if m.enabled {
		m.activeSessions.Set(float64(count))
	}
}

// RecordAuthAttempt records a login or registration outcome.
func (m *Manager) RecordAuthAttempt(form, outcome string) {
	if m.enabled {
		m.authAttempts.WithLabelValues(form, outcome).Inc()
	}
}

// RecordValidationFailure records a submission blocked before reaching the network.
func (m *Manager) RecordValidationFailure(form string) {
	if m.enabled {
		m.validationFailures.WithLabelValues(form).Inc()
	}
}

// RecordFetchSuperseded records a fetch cycle discarded in favour of a newer one.
func (m *Manager) RecordFetchSuperseded(view string) {
	if m.enabled {
		m.fetchesSuperseded.WithLabelValues(view).Inc()
	}
}

// RecordTalentStatusChange records an activation or deactivation.
func (m *Manager) RecordTalentStatusChange(action string) {
	if m.enabled {
		m.talentStatusChanges.WithLabelValues(action).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func (m *Manager) RecordErrorByType(errorType, severity string) {
	if m.enabled {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap usage gauge in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// The package-level helpers below record into the manager installed by Init.

// Enabled reports whether the process-wide manager records observations.
func Enabled() bool { return current().enabled }

// RefreshInterval is how often the process should refresh its gauges.
func RefreshInterval() time.Duration { return current().refreshInterval }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().RecordHTTPRequest(endpoint, method, statusCode)
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	current().RecordHTTPRequestDuration(endpoint, method, statusCode, durationMs)
}

func RecordUpstreamRequest(endpoint, method, statusCode string, latencyMs float64) {
	current().RecordUpstreamRequest(endpoint, method, statusCode, latencyMs)
}

func RecordUpstreamError(endpoint, kind string) { current().RecordUpstreamError(endpoint, kind) }

func RecordSessionCreated() { current().RecordSessionCreated() }

func RecordSessionInvalidated(reason string) { current().RecordSessionInvalidated(reason) }

func UpdateActiveSessions(count int) { current().UpdateActiveSessions(count) }

func RecordAuthAttempt(form, outcome string) { current().RecordAuthAttempt(form, outcome) }

func RecordValidationFailure(form string) { current().RecordValidationFailure(form) }

func RecordFetchSuperseded(view string) { current().RecordFetchSuperseded(view) }

func RecordTalentStatusChange(action string) { current().RecordTalentStatusChange(action) }

func RecordErrorByType(errorType, severity string) { current().RecordErrorByType(errorType, severity) }

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	current().RecordErrorByEndpoint(endpoint, method, errorType)
}

func UpdateSystemMemoryUsage(bytes uint64) { current().UpdateSystemMemoryUsage(bytes) }

func UpdateSystemGoroutineCount(count int) { current().UpdateSystemGoroutineCount(count) }

// GetRegistry returns the registry of the manager installed by Init.
func GetRegistry() *prometheus.Registry {
	return active.Load().registry
}
