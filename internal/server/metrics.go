// Package server exposes Prometheus instrumentation for the chat relay.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connections_active",
		Help: "Number of live WebSocket connections.",
	})
	metricRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_rooms_active",
		Help: "Number of rooms with at least one member.",
	})
	metricMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total chat messages appended to room history.",
	})
	metricEventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_events_delivered_total",
		Help: "Total event frames delivered to client send queues.",
	})
)

// MetricsHandler exposes Prometheus metrics at /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
