package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every SessBox metric.
const Namespace = "sessbox"

// Cycle results.
const (
	ResultSuccess = "success"
	ResultOffline = "offline"
	ResultAuth    = "auth_required"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	SyncCycles    *prometheus.CounterVec
	SyncDuration  prometheus.Histogram
	LastSuccess   prometheus.Gauge
	QueueDepth    prometheus.Gauge
	QueueOps      *prometheus.CounterVec
	MergeChanges  *prometheus.CounterVec
	Online        prometheus.Gauge
	CacheSessions prometheus.Gauge
}

// NewRegistry creates a registry with the SessBox metrics and the Go
// runtime collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		registry: reg,
		SyncCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by result.",
		}, []string{"result"}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Duration of completed sync cycles.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sync_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync cycle.",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_depth",
			Help:      "Pending operations awaiting the remote store.",
		}),
		QueueOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queue_operations_total",
			Help:      "Queued operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		MergeChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "merge_changes_total",
			Help:      "Records changed by reconciliation, by change type.",
		}, []string{"change"}),
		Online: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "online",
			Help:      "1 when the remote store is believed reachable.",
		}),
		CacheSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cache_sessions",
			Help:      "Sessions held in the local cache.",
		}),
	}
}

// Registerer exposes the underlying registry for component collectors
// such as the Badger size gauges. Returns nil on a nil Registry.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records a finished sync cycle.
func (r *Registry) ObserveCycle(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.SyncCycles.WithLabelValues(result).Inc()
	if result == ResultSkipped {
		return
	}
	r.SyncDuration.Observe(d.Seconds())
	if result == ResultSuccess {
		r.LastSuccess.Set(float64(time.Now().Unix()))
	}
}

// SetQueueDepth records the current queue length.
func (r *Registry) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.QueueDepth.Set(float64(n))
}

// CountQueueOp records the outcome of one queued operation.
func (r *Registry) CountQueueOp(kind, outcome string) {
	if r == nil {
		return
	}
	r.QueueOps.WithLabelValues(kind, outcome).Inc()
}

// CountMergeChange adds n changes of the given type.
func (r *Registry) CountMergeChange(change string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.MergeChanges.WithLabelValues(change).Add(float64(n))
}

// SetOnline records the connectivity state.
func (r *Registry) SetOnline(online bool) {
	if r == nil {
		return
	}
	if online {
		r.Online.Set(1)
	} else {
		r.Online.Set(0)
	}
}

// SetCacheSessions records the number of cached sessions.
func (r *Registry) SetCacheSessions(n int) {
	if r == nil {
		return
	}
	r.CacheSessions.Set(float64(n))
}
