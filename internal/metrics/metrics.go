// Package metrics holds the Prometheus collectors of the timeline services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	QueryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timeline_query_latency_seconds",
		Help:    "Timeline query latency distribution",
		Buckets: prometheus.DefBuckets,
	}, []string{"status", "shard"})

	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_queries_total",
		Help: "Total timeline queries processed",
	}, []string{"status", "shard"})

	ItemsProjected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_items_projected_total",
		Help: "Timeline items produced from search hits",
	}, []string{"group"})

	HitsWithoutItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_hits_without_items_total",
		Help: "Search hits that produced no timeline item, usually for lack of a start value",
	}, []string{"group"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_cache_lookups_total",
		Help: "Coordinator cache lookups by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(QueryLatency)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(ItemsProjected)
	prometheus.MustRegister(HitsWithoutItems)
	prometheus.MustRegister(CacheLookups)
}

// ObserveQuery records one served query.
func ObserveQuery(status, shard string, start time.Time) {
	QueriesTotal.WithLabelValues(status, shard).Inc()
	QueryLatency.WithLabelValues(status, shard).Observe(time.Since(start).Seconds())
}
