package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartwin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartwin_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartwin_payments_initiated_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartwin_reconciliations_total",
			Help: "Reconcile runs by trigger source and result",
		},
		[]string{"source", "result"},
	)

	AccessGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartwin_access_granted_total",
			Help: "Users unlocked by a completed gateway payment",
		},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartwin_gateway_request_duration_seconds",
			Help:    "Payment gateway call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	ConsultationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartwin_consultation_requests_total",
			Help: "Consultation requests created by payment method",
		},
		[]string{"method"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartwin_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smartwin_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPaymentInitiated(outcome string) {
	PaymentsInitiatedTotal.WithLabelValues(outcome).Inc()
}

func RecordReconciliation(source, result string) {
	ReconciliationsTotal.WithLabelValues(source, result).Inc()
}

func RecordAccessGranted() {
	AccessGrantedTotal.Inc()
}

func RecordGatewayCall(operation, outcome string, seconds float64) {
	GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(seconds)
}

func RecordConsultation(method string) {
	ConsultationRequestsTotal.WithLabelValues(method).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
