package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mareeba",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mareeba",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created.",
		},
	)

	bookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mareeba",
			Name:      "bookings_rejected_total",
			Help:      "Booking attempts rejected, by reason.",
		},
		[]string{"reason"},
	)

	paymentsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mareeba",
			Name:      "payments_confirmed_total",
			Help:      "Payments marked completed.",
		},
	)

	sheetsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mareeba",
			Name:      "sheets_sync_total",
			Help:      "Spreadsheet sync attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mareeba",
			Name:      "availability_cache_total",
			Help:      "Availability cache lookups, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingsRejected,
			paymentsConfirmed,
			sheetsSync,
			cacheHits,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingRejected(reason string) {
	bookingsRejected.WithLabelValues(reason).Inc()
}

func IncPaymentConfirmed() {
	paymentsConfirmed.Inc()
}

func IncSheetsSync(outcome string) {
	sheetsSync.WithLabelValues(outcome).Inc()
}

func IncCache(outcome string) {
	cacheHits.WithLabelValues(outcome).Inc()
}
