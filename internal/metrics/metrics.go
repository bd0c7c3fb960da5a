package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)
	OTPIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "otp_issued_total", Help: "One-time codes issued"},
		[]string{"flow"}, // register | resend | reset
	)
	PlansGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "workout_plans_generated_total", Help: "Plans produced by the text API"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, OTPIssued, PlansGenerated)
}
