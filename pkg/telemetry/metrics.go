package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Swap outcomes reported on swaps_total
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swaps_total", Help: "Swap requests by chain and outcome"},
		[]string{"chain", "outcome"},
	)
	SwapStepSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_step_seconds",
			Help:    "Latency of each swap pipeline step",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"chain", "step"},
	)
	BalanceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "balance_requests_total", Help: "Balance lookups served"},
		[]string{"chain"},
	)
)

func init() {
	prometheus.MustRegister(SwapsTotal, SwapStepSeconds, BalanceRequestsTotal)
}

// ObserveStep records the time spent in one pipeline step since start
func ObserveStep(chain, step string, start time.Time) {
	SwapStepSeconds.WithLabelValues(chain, step).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
