package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Capacity ledger
	capacityReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigbooking_capacity_reservations_total",
			Help: "Capacity reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	capacityReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigbooking_capacity_releases_total",
			Help: "Capacity releases by outcome",
		},
		[]string{"outcome"},
	)

	// Saga compensations
	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigbooking_compensations_total",
			Help: "Compensating actions run after a failed booking step",
		},
		[]string{"step", "result"},
	)

	// Cache
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigbooking_cache_lookups_total",
			Help: "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	// Payment result worker
	paymentResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigbooking_payment_results_total",
			Help: "Payment result messages processed by outcome",
		},
		[]string{"outcome", "result"},
	)
)

func RecordReservation(outcome string) {
	capacityReservationsTotal.WithLabelValues(outcome).Inc()
}

func RecordRelease(outcome string) {
	capacityReleasesTotal.WithLabelValues(outcome).Inc()
}

func RecordCompensation(step, result string) {
	compensationsTotal.WithLabelValues(step, result).Inc()
}

func RecordCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

func RecordPaymentResult(outcome, result string) {
	paymentResultsTotal.WithLabelValues(outcome, result).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
