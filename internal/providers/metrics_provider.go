package providers

import (
	"amuletbot/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	GiveGranted  = "granted"
	GiveRejected = "held"
	GiveFailed   = "error"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(namespace string)
	IncCacheMisses(namespace string)
	ObservePersistenceDuration(duration time.Duration)
	IncGives(result string)
	IncExpiries()
	SetActiveTimers(count int)
	SetGuildsTotal(count int)
	SetUsersTotal(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	persistenceDuration prometheus.Histogram
	givesTotal          *prometheus.CounterVec
	expiriesTotal       prometheus.Counter
	activeTimers        prometheus.Gauge
	guildsTotal         prometheus.Gauge
	usersTotal          prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(namespace string) {
	m.cacheHits.WithLabelValues(namespace).Inc()
}

func (m *MetricsProvider) IncCacheMisses(namespace string) {
	m.cacheMisses.WithLabelValues(namespace).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncGives(result string) {
	m.givesTotal.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) IncExpiries() {
	m.expiriesTotal.Inc()
}

func (m *MetricsProvider) SetActiveTimers(count int) {
	m.activeTimers.Set(float64(count))
}

func (m *MetricsProvider) SetGuildsTotal(count int) {
	m.guildsTotal.Set(float64(count))
}

func (m *MetricsProvider) SetUsersTotal(count int) {
	m.usersTotal.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amuletbot_requests_total",
			Help: "Status API requests by registered endpoint",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amuletbot_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amuletbot_cache_hits_total",
			Help: "Response cache hits by key namespace",
		}, []string{"namespace"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amuletbot_cache_misses_total",
			Help: "Response cache misses by key namespace",
		}, []string{"namespace"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "amuletbot_persistence_duration_seconds",
			Help:    "Duration of document writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		givesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amuletbot_gives_total",
			Help: "Amulet give attempts by result",
		}, []string{"result"}),

		expiriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amuletbot_expiries_total",
			Help: "Amulet possessions ended by timeout",
		}),

		activeTimers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amuletbot_active_timers",
			Help: "Guilds with an armed amulet expiry timer",
		}),

		guildsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amuletbot_guilds_total",
			Help: "Guilds in the document",
		}),

		usersTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amuletbot_users_total",
			Help: "User profiles across all guilds",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncGives(_ string)                                {}
func (n *noopMetrics) IncExpiries()                                     {}
func (n *noopMetrics) SetActiveTimers(_ int)                            {}
func (n *noopMetrics) SetGuildsTotal(_ int)                             {}
func (n *noopMetrics) SetUsersTotal(_ int)                              {}
