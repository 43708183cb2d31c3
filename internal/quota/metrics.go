package quota

import "github.com/prometheus/client_golang/prometheus"

var reservationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quota_reservations_total",
		Help: "Quota reservation attempts by outcome (granted, denied, rolled_back).",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(reservationsTotal)
}
