package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urbanlens",
			Subsystem: "scheduler",
			Name:      "jobs_total",
			Help:      "Scheduled jobs processed, by type and terminal status.",
		},
		[]string{"job_type", "status"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "urbanlens",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of job handler executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job_type"},
	)

	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urbanlens",
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Completed wallet movements, by transaction type or rail direction.",
		},
		[]string{"type"},
	)

	depositsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "urbanlens",
			Subsystem: "external",
			Name:      "deposits_expired_total",
			Help:      "Deposit transactions expired without payment.",
		},
	)
)

func init() {
	Registry.MustRegister(jobsProcessed, jobDuration, transfersTotal, depositsExpired)
}

func ObserveJob(jobType, status string, duration time.Duration) {
	jobsProcessed.WithLabelValues(jobType, status).Inc()
	jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func IncTransfer(transactionType string) {
	transfersTotal.WithLabelValues(transactionType).Inc()
}

func AddExpiredDeposits(count int64) {
	depositsExpired.Add(float64(count))
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
