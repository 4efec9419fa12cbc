package relay

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tejasmk/doorbell/internal/models"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewRouter assembles the relay's HTTP surface: the websocket endpoint,
// the visitor directory, health and metrics.
func NewRouter(hub *Hub, registry *VisitorRegistry, corsOrigins string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(corsOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthCheck)
	r.Get("/users", listUsers(registry))
	r.Get("/ws", NewHandler(hub).ServeWS)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// healthCheck handles GET /health
// Returns the server's health status for monitoring checks.
func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "doorbell relay is running",
	})
}

// listUsers handles GET /users
// Returns every visitor that has ever joined, in first-seen order.
func listUsers(registry *VisitorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.ListVisitorsResponse(registry.List()))
	}
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// splitOrigins parses the comma-separated CORS_ORIGINS value.
func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
