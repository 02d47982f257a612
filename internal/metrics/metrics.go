package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailsync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// IMAP session duration in seconds
	IMAPFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailsync_imap_fetch_duration_seconds",
			Help:    "IMAP session duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"operation", "status"},
	)

	// Emails upserted from IMAP
	EmailsFetchedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsync_emails_fetched_total",
			Help: "Total number of emails fetched from IMAP and stored",
		},
	)

	// Processing outcomes
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsync_email_processed_total",
			Help: "Total number of emails processed",
		},
		[]string{"status"}, // status: success, failed, skipped, supplied
	)

	// Intercom call latency in milliseconds
	IntercomCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailsync_intercom_call_latency_ms",
			Help:    "Intercom API call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"status"},
	)

	// Store writes that reported failure
	StoreWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsync_store_write_failures_total",
			Help: "Total number of failed settings or email writes",
		},
		[]string{"partition"},
	)
)

// RecordHTTPRequestDuration records a served request
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordIMAPFetch records an IMAP session
func RecordIMAPFetch(operation string, err error, duration time.Duration) {
	IMAPFetchDuration.WithLabelValues(operation, statusOf(err)).Observe(duration.Seconds())
}

// AddEmailsFetched counts stored emails from a fetch
func AddEmailsFetched(n int) {
	EmailsFetchedCount.Add(float64(n))
}

// IncrementEmailProcessed counts a processing outcome
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

// RecordIntercomCall records the latency of a forward
func RecordIntercomCall(err error, duration time.Duration) {
	IntercomCallLatency.WithLabelValues(statusOf(err)).Observe(float64(duration.Milliseconds()))
}

// IncrementStoreWriteFailure counts a failed write of a partition
func IncrementStoreWriteFailure(partition string) {
	StoreWriteFailures.WithLabelValues(partition).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
