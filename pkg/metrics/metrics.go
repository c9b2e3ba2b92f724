// Package metrics exposes the subsystem's Prometheus metrics.
//
// All metrics use the labauth_ prefix. A single Metrics value is built
// at startup and handed to the directory client, the cache, the
// provisioning service and the authentication providers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlabtools/labauth/pkg/auth"
)

// Metrics tracks the subsystem's Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// DirectoryCalls counts remote directory calls by operation and status.
	DirectoryCalls *prometheus.CounterVec

	// DirectoryCallDuration tracks remote call latency by operation.
	DirectoryCallDuration *prometheus.HistogramVec

	// CacheLookups counts lookup-cache hits and misses by operation.
	CacheLookups *prometheus.CounterVec

	// CacheEntries tracks the current number of cached entries.
	CacheEntries prometheus.Gauge

	// LoginVerdicts counts login verdicts by provider and verdict.
	LoginVerdicts *prometheus.CounterVec

	// AccountCreations counts provisioning creation attempts by result.
	AccountCreations *prometheus.CounterVec

	// AccountSyncs counts post-login synchronizations by result.
	AccountSyncs *prometheus.CounterVec
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		DirectoryCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labauth_directory_calls_total",
				Help: "Total remote directory calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		DirectoryCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labauth_directory_call_duration_seconds",
				Help:    "Remote directory call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labauth_cache_lookups_total",
				Help: "Directory lookup cache hits and misses by operation",
			},
			[]string{"operation", "result"},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "labauth_cache_entries",
				Help: "Current number of cached directory lookups",
			},
		),
		LoginVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labauth_login_verdicts_total",
				Help: "Login verdicts by provider and verdict",
			},
			[]string{"provider", "verdict"},
		),
		AccountCreations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labauth_account_creations_total",
				Help: "Account provisioning attempts by result",
			},
			[]string{"result"},
		),
		AccountSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labauth_account_syncs_total",
				Help: "Post-login account synchronizations by result",
			},
			[]string{"result"},
		),
	}
	registry.MustRegister(
		m.DirectoryCalls,
		m.DirectoryCallDuration,
		m.CacheLookups,
		m.CacheEntries,
		m.LoginVerdicts,
		m.AccountCreations,
		m.AccountSyncs,
	)
	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall implements directory.ClientMetrics.
func (m *Metrics) ObserveCall(op string, duration time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	m.DirectoryCalls.WithLabelValues(op, status).Inc()
	m.DirectoryCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHit implements directory.CacheMetrics.
func (m *Metrics) RecordHit(op string) {
	m.CacheLookups.WithLabelValues(op, "hit").Inc()
}

// RecordMiss implements directory.CacheMetrics.
func (m *Metrics) RecordMiss(op string) {
	m.CacheLookups.WithLabelValues(op, "miss").Inc()
}

// RecordEntryCount implements directory.CacheMetrics.
func (m *Metrics) RecordEntryCount(n int) {
	m.CacheEntries.Set(float64(n))
}

// RecordVerdict implements auth.Metrics.
func (m *Metrics) RecordVerdict(provider string, verdict auth.Verdict) {
	m.LoginVerdicts.WithLabelValues(provider, verdict.String()).Inc()
}

// RecordCreate implements provision.Metrics.
func (m *Metrics) RecordCreate(ok bool) {
	m.AccountCreations.WithLabelValues(result(ok)).Inc()
}

// RecordSync implements provision.Metrics.
func (m *Metrics) RecordSync(ok bool) {
	m.AccountSyncs.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
