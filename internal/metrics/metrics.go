package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	submitOutcome = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labreserve",
			Name:      "submit_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	submittedRanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labreserve",
			Name:      "submitted_ranges_total",
			Help:      "Count of compressed ranges sent to the repository.",
		},
	)

	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labreserve",
			Name:      "week_fetch_attempts_total",
			Help:      "Count of for-week fetch attempts by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labreserve",
			Name:      "http_requests_total",
			Help:      "Count of local API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	conflictKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "labreserve",
			Name:      "conflict_keys",
			Help:      "Number of pending selections currently in conflict.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(submitOutcome, submittedRanges, fetchAttempts, httpRequests, conflictKeys)
	})
}

func IncSubmit(outcome string) {
	submitOutcome.WithLabelValues(outcome).Inc()
}

func AddSubmittedRanges(n int) {
	submittedRanges.Add(float64(n))
}

func IncFetchAttempt(result string) {
	fetchAttempts.WithLabelValues(result).Inc()
}

func SetConflictKeys(n int) {
	conflictKeys.Set(float64(n))
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
