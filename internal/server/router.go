// Package server assembles the HTTP routes for the investigation service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/causeway-ops/causeway/internal/handlers"
)

// NewRouter constructs a ServeMux with the investigation API routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/rca", h.RCA)
	mux.HandleFunc("/api/v1/chat/completions", h.ChatCompletions)
	mux.HandleFunc("/api/v1/integrations/{id}/test", h.IntegrationTest)
	mux.HandleFunc("/api/v1/integrations/{id}/explore", h.IntegrationExplore)
	mux.HandleFunc("/healthz", h.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.NotFound)
	return mux
}
