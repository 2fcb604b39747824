package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RepositoryOperations counts repository operations by repository, operation and result.
	RepositoryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdot_repository_operations_total",
		Help: "Total repository operations by repository, operation and result",
	}, []string{"repository", "operation", "result"})

	// DocstoreLatency records document store latency by operation and collection.
	DocstoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookdot_docstore_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdot_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ActiveSubscriptions is the gauge of open live streams by source.
	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bookdot_active_subscriptions",
		Help: "Number of open live-query subscriptions",
	}, []string{"source"})

	// IdentityEvents counts identity lifecycle events.
	IdentityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdot_identity_events_total",
		Help: "Identity events by type and result",
	}, []string{"event", "result"})
)

// ObserveOperation records the outcome of a repository operation.
func ObserveOperation(repository, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RepositoryOperations.WithLabelValues(repository, operation, result).Inc()
}

// TrackDocstore returns a function that records latency when called (e.g. defer).
func TrackDocstore(operation, collection string) func() {
	start := time.Now()
	return func() {
		DocstoreLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	}
}
