// Package server wires HTTP handlers into a ServeMux for the chat relay via
// routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the WebSocket endpoint, the read-only JSON surface, Prometheus
// metrics, and the test page.
func SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("GET /api/stats", StatsHandler)
	mux.HandleFunc("GET /api/users", UsersHandler)
	mux.HandleFunc("GET /api/messages/{room}", MessagesHandler)
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("/ws", WebSocketHandler)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
