// Package observability provides metrics and tracing for the application.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheHits counts cache-aside hits by key prefix.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_cache_hits_total",
		Help: "Total number of cache-aside hits",
	}, []string{"prefix"})

	// CacheMisses counts cache-aside misses by key prefix.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_cache_misses_total",
		Help: "Total number of cache-aside misses",
	}, []string{"prefix"})

	// DatabaseQueryLatency records database query latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parley_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// MessagesPublished counts chat messages fanned out per conversation.
	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_messages_published_total",
		Help: "Total number of chat messages published for fan-out",
	}, []string{"conversation_type"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveQuery records the latency of a database operation.
func ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records latency when called (e.g. defer).
func TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, start)
	}
}
