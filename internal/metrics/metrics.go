package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homigo",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status class",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "homigo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"route"},
	)

	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homigo",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homigo",
			Name:      "gateway_requests_total",
			Help:      "Payment link requests by outcome",
		},
		[]string{"outcome"},
	)

	// gateway timeout defaults to 15s, buckets go slightly past it
	GatewayRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "homigo",
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of payment link requests",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 12, 16},
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ReservationsTotal,
		GatewayRequestsTotal,
		GatewayRequestDuration,
	)
}

func IncHTTP(route, method, status string) {
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
}

func ObserveHTTP(route string, seconds float64) {
	HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

func IncReservation(outcome string) {
	ReservationsTotal.WithLabelValues(outcome).Inc()
}

func ObserveGateway(outcome string, seconds float64) {
	GatewayRequestsTotal.WithLabelValues(outcome).Inc()
	GatewayRequestDuration.Observe(seconds)
}
