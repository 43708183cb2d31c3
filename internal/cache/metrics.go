package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Result cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_probes_total",
			Help: "Handle probes by result (live, gone, error).",
		},
		[]string{"result"},
	)
	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "result_cache_evictions_total",
			Help: "Result cache entries evicted.",
		},
	)
)

func init() {
	prometheus.MustRegister(lookupsTotal, probesTotal, evictionsTotal)
}
