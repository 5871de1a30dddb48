package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes bounds chat bodies and stream frames. The sanitizer
// enforces the real character limit.
const maxRequestBytes = 64 * 1024

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /v1/records", s.handleRecords)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}
