package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal  *prometheus.CounterVec
	votesTotal         *prometheus.CounterVec
	cacheLookupsTotal  *prometheus.CounterVec
	invalidationsTotal prometheus.Counter
	wsClients          prometheus.Gauge
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pollfeed",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the pollfeed API.",
		}, []string{"method", "path", "status"})

		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pollfeed",
			Name:      "votes_total",
			Help:      "Vote casting outcomes.",
		}, []string{"outcome"})

		cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pollfeed",
			Name:      "results_cache_lookups_total",
			Help:      "Results cache lookups by result (hit, miss, bypass).",
		}, []string{"result"})

		invalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pollfeed",
			Name:      "invalidation_events_total",
			Help:      "Invalidation events consumed from the bus.",
		})

		wsClients = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "pollfeed",
			Name:      "ws_clients",
			Help:      "Currently connected realtime clients.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVote(outcome string) {
	if votesTotal == nil {
		return
	}
	votesTotal.WithLabelValues(outcome).Inc()
}

func IncCacheLookup(result string) {
	if cacheLookupsTotal == nil {
		return
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

func IncInvalidation() {
	if invalidationsTotal == nil {
		return
	}
	invalidationsTotal.Inc()
}

func AddWSClients(delta float64) {
	if wsClients == nil {
		return
	}
	wsClients.Add(delta)
}
