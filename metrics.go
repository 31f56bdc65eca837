package userkit

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by Service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PluginChecksTotal   *prometheus.CounterVec
	GrantChangesTotal   *prometheus.CounterVec
	BootstrapsTotal     *prometheus.CounterVec
	AccessCacheHits     prometheus.Counter
	AccessCacheMisses   prometheus.Counter
	TransactionDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PluginChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userkit_plugin_checks_total",
				Help: "Total number of plugin access checks",
			},
			[]string{"result"},
		),
		GrantChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userkit_grant_changes_total",
				Help: "Total number of plugin grants created or revoked",
			},
			[]string{"change"},
		),
		BootstrapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userkit_bootstraps_total",
				Help: "Total number of users created through CreateFirst",
			},
			[]string{"superuser"},
		),
		AccessCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "userkit_access_cache_hits_total",
				Help: "Total number of access snapshot cache hits",
			},
		),
		AccessCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "userkit_access_cache_misses_total",
				Help: "Total number of access snapshot cache misses",
			},
		),
		TransactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "userkit_transaction_duration_seconds",
				Help:    "Service transaction duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.PluginChecksTotal,
		m.GrantChangesTotal,
		m.BootstrapsTotal,
		m.AccessCacheHits,
		m.AccessCacheMisses,
		m.TransactionDuration,
	)

	return m
}

func (m *Metrics) recordPluginCheck(allowed bool) {
	if m == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.PluginChecksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordGrantChanges(granted, revoked int) {
	if m == nil {
		return
	}
	m.GrantChangesTotal.WithLabelValues("granted").Add(float64(granted))
	m.GrantChangesTotal.WithLabelValues("revoked").Add(float64(revoked))
}

func (m *Metrics) recordBootstrap(superuser bool) {
	if m == nil {
		return
	}
	m.BootstrapsTotal.WithLabelValues(strconv.FormatBool(superuser)).Inc()
}

func (m *Metrics) recordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.AccessCacheHits.Inc()
		return
	}
	m.AccessCacheMisses.Inc()
}

func (m *Metrics) recordTransaction(duration time.Duration, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.TransactionDuration.WithLabelValues(status).Observe(duration.Seconds())
}
