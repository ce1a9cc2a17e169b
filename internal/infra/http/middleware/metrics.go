package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	funnelEntriesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_entries_created_total",
			Help: "Total number of funnel entries created",
		},
		[]string{"result"}, // inserted | skipped | failed
	)

	purchasesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnel_purchases_recorded_total",
			Help: "Total number of certificate purchases reconciled",
		},
	)

	outboxJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_jobs_total",
			Help: "Outbox jobs by outcome",
		},
		[]string{"outcome"}, // delivered | retried | quarantined | reclaimed
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordEntries(inserted, skipped, failed int) {
	funnelEntriesCreated.WithLabelValues("inserted").Add(float64(inserted))
	funnelEntriesCreated.WithLabelValues("skipped").Add(float64(skipped))
	funnelEntriesCreated.WithLabelValues("failed").Add(float64(failed))
}

func RecordPurchases(updated int) {
	purchasesRecorded.Add(float64(updated))
}

func RecordOutbox(delivered, retried, quarantined, reclaimed int) {
	outboxJobs.WithLabelValues("delivered").Add(float64(delivered))
	outboxJobs.WithLabelValues("retried").Add(float64(retried))
	outboxJobs.WithLabelValues("quarantined").Add(float64(quarantined))
	outboxJobs.WithLabelValues("reclaimed").Add(float64(reclaimed))
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
