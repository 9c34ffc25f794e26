package api

import (
	"net/http"

	"crowdwatch/internal/metrics"

	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP surface: REST API, websocket streams, health
// check and Prometheus metrics.
func NewRouter(h *Handlers, m *metrics.Metrics) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Cameras endpoints
	api.HandleFunc("/cameras", h.GetCameras).Methods("GET")
	api.HandleFunc("/cameras", h.UpdateCameras).Methods("PUT")
	api.HandleFunc("/cameras/{id}", h.GetCamera).Methods("GET")

	// Incidents endpoints
	api.HandleFunc("/incidents", h.GetIncidents).Methods("GET")
	api.HandleFunc("/incidents/{id}/resolve", h.ResolveIncident).Methods("POST")

	// Alerts endpoints
	api.HandleFunc("/alerts/active", h.GetActiveAlerts).Methods("GET")
	api.HandleFunc("/alerts", h.GetAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}/acknowledge", h.AcknowledgeAlert).Methods("POST")
	api.HandleFunc("/alerts/{id}/dismiss", h.DismissAlert).Methods("POST")

	// Stream endpoints
	api.HandleFunc("/stream/detections", h.StreamDetections).Methods("GET")
	api.HandleFunc("/stream/alerts", h.StreamAlerts).Methods("GET")

	// Stats endpoint
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	if m != nil {
		router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigins := []string{
			"http://localhost:5000",
			"http://localhost:3000",
			"http://127.0.0.1:5000",
			"http://127.0.0.1:3000",
		}

		allowOrigin := "*"
		if origin != "" {
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					allowOrigin = origin
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if allowOrigin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
