package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"crowdwatch/internal/camera"
	"crowdwatch/internal/hub"
	"crowdwatch/internal/metrics"
	"crowdwatch/internal/model"
	"crowdwatch/internal/rules"
	"crowdwatch/internal/store"
	"crowdwatch/internal/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	store    *store.Store
	registry *camera.Registry
	engine   *rules.Engine
	hub      *hub.Hub
	config   *utils.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// SetMetrics attaches the metrics collector. Optional.
func (h *Handlers) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

func NewHandlers(st *store.Store, registry *camera.Registry, engine *rules.Engine, h *hub.Hub, config *utils.Config, logger *logrus.Logger) *Handlers {
	return &Handlers{
		store:    st,
		registry: registry,
		engine:   engine,
		hub:      h,
		config:   config,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				logger.Debugf("WebSocket origin check: %s", origin)
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Camera handlers
func (h *Handlers) GetCameras(w http.ResponseWriter, r *http.Request) {
	cameras := h.registry.Cameras()

	response := map[string]interface{}{
		"items": cameras,
		"total": len(cameras),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetCamera(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	cam, ok := h.registry.Camera(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Camera not found")
		return
	}

	writeJSON(w, http.StatusOK, cam)
}

// UpdateCameras applies a full camera configuration list to the registry
// without restarting the hub.
func (h *Handlers) UpdateCameras(w http.ResponseWriter, r *http.Request) {
	var configs []model.CameraConfig
	if err := json.NewDecoder(r.Body).Decode(&configs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for i := range configs {
		if configs[i].ID == "" || configs[i].Capacity <= 0 {
			writeError(w, http.StatusBadRequest, "Every camera needs an id and a positive capacity")
			return
		}
	}

	h.registry.ApplyConfig(configs)
	writeJSON(w, http.StatusOK, h.registry.Cameras())
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"cameras":        h.registry.Stats(),
		"unacknowledged": h.store.UnacknowledgedCount(),
		"hub_running":    h.hub.Running(),
	}

	if latest := h.hub.Latest(); latest != nil {
		stats["latest_sample"] = latest
	}

	writeJSON(w, http.StatusOK, stats)
}

// Incident handlers
func (h *Handlers) GetIncidents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}

	incidents := h.store.Incidents(limit)

	response := map[string]interface{}{
		"items": incidents,
		"total": len(incidents),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	// Unknown ids are a silent no-op: operator actions may race with
	// buffer eviction.
	resolved := h.engine.ResolveIncident(id)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id,
		"resolved": resolved,
	})
}

// Alert handlers
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}
	priority := r.URL.Query().Get("priority")
	if priority == "all" {
		priority = ""
	}

	alerts := h.store.Alerts(limit, priority)

	response := map[string]interface{}{
		"items": alerts,
		"total": len(alerts),
	}

	writeJSON(w, http.StatusOK, response)
}

// GetActiveAlerts serves the presentation queue: unacknowledged and
// undismissed alerts, newest first, priority filter applied before the cap.
func (h *Handlers) GetActiveAlerts(w http.ResponseWriter, r *http.Request) {
	priority := r.URL.Query().Get("priority")

	limit := h.config.Rules.PresentationToastCap
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	alerts := h.store.ActiveAlerts(priority, limit)

	response := map[string]interface{}{
		"items":          alerts,
		"unacknowledged": h.store.UnacknowledgedCount(),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	acknowledged := h.engine.AcknowledgeAlert(id)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":           id,
		"acknowledged": acknowledged,
	})
}

func (h *Handlers) DismissAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	dismissed := h.engine.DismissAlert(id)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        id,
		"dismissed": dismissed,
	})
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
