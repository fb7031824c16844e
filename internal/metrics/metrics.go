package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daan_http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daan_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ReceiptFallbackTotal counts time-derived receipt numbers issued
	// because the used-number scan failed. Any increase warrants an
	// operator looking at the store: fallback numbers can collide.
	ReceiptFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daan_receipt_fallback_total",
		Help: "Receipt numbers issued via the degraded time-derived path",
	})

	// PaymentConflictsTotal counts payments rejected by the second
	// overshoot check, i.e. callers told to retry.
	PaymentConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daan_payment_conflicts_total",
		Help: "Payments rejected due to a concurrent update of the entry",
	})
)
