package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OTPSent counts send requests by channel and result (sent|mock|invalid|failed).
	OTPSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mridang_otp_sent_total",
			Help: "Total number of one-time code send requests",
		},
		[]string{"channel", "result"},
	)

	// OTPVerified counts verify requests by channel and result
	// (verified|not_found|expired|invalid|locked|bad_request).
	OTPVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mridang_otp_verified_total",
			Help: "Total number of one-time code verification attempts",
		},
		[]string{"channel", "result"},
	)

	// SMSGatewayFailures counts SMS gateway rejections by failure class.
	SMSGatewayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mridang_sms_gateway_failures_total",
			Help: "Total number of SMS gateway failures",
		},
		[]string{"kind"},
	)

	// Checkouts counts checkout submissions by result (accepted|rejected).
	Checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mridang_checkouts_total",
			Help: "Total number of checkout submissions",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mridang_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Handler exposes the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
