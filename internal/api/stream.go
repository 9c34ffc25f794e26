package api

import (
	"net/http"
	"sync"
	"time"

	"crowdwatch/internal/model"
	"crowdwatch/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// streamMessage is the envelope for data frames on the websocket streams.
// Keep-alives are websocket ping frames, so they are distinguishable from
// data by frame type and never look like a detection event.
type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// StreamDetections pushes every published detection sample to the client.
// Late joiners receive the current latest sample immediately on connect.
func (h *Handlers) StreamDetections(w http.ResponseWriter, r *http.Request) {
	h.logger.Infof("WebSocket connection attempt from %s", r.RemoteAddr)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	h.logger.Infof("WebSocket connection established from %s", r.RemoteAddr)
	if h.metrics != nil {
		h.metrics.StreamClients.Inc()
	}
	defer func() {
		h.logger.Debugf("WebSocket connection closed for %s", r.RemoteAddr)
		if h.metrics != nil {
			h.metrics.StreamClients.Dec()
		}
		conn.Close()
	}()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(24 * time.Hour))
		return nil
	})

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(streamMessage{Type: "connected"}); err != nil {
		h.logger.Errorf("Failed to send initial message: %v", err)
		return
	}

	// Replay the current latest sample so late joiners get immediate state.
	if latest := h.hub.Latest(); latest != nil {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(streamMessage{Type: "sample", Data: latest}); err != nil {
			h.logger.Debugf("Failed to replay latest sample: %v", err)
			return
		}
	}

	done := make(chan struct{})
	once := &sync.Once{}
	closeDone := func() {
		once.Do(func() {
			close(done)
		})
	}

	sampleChan := make(chan model.DetectionSample, 100)
	unsubscribe := h.hub.Subscribe(func(sample model.DetectionSample) {
		select {
		case sampleChan <- sample:
		default:
			// Channel full, skip this sample (avoid blocking the fan-out)
			h.logger.Debugf("Sample channel full, dropping sample")
		}
	})
	defer unsubscribe()

	// Keep-alive pings on the heartbeat period
	heartbeat := time.Duration(h.config.Detection.HeartbeatIntervalSeconds) * time.Second
	pingTicker := time.NewTicker(heartbeat)
	defer pingTicker.Stop()

	go func() {
		defer closeDone()
		for {
			select {
			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
					h.logger.Debugf("Ping failed: %v", err)
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Read messages in background to detect connection close
	go func() {
		defer closeDone()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case sample := <-sampleChan:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(streamMessage{Type: "sample", Data: sample}); err != nil {
				h.logger.Debugf("WebSocket write error: %v", err)
				return
			}
		}
	}
}

// StreamAlerts pushes newly created alerts to the client, optionally
// filtered by priority and camera.
func (h *Handlers) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.StreamClients.Inc()
		defer h.metrics.StreamClients.Dec()
	}

	sub := &store.AlertSubscriber{
		ID:      uuid.NewString(),
		Channel: make(chan model.Alert, 100),
		Filter: store.AlertFilter{
			Priority: r.URL.Query().Get("priority"),
			CameraID: r.URL.Query().Get("camera"),
		},
	}

	h.store.SubscribeAlerts(sub)
	defer h.store.UnsubscribeAlerts(sub)

	done := make(chan struct{})
	once := &sync.Once{}
	closeDone := func() {
		once.Do(func() {
			close(done)
		})
	}

	heartbeat := time.Duration(h.config.Detection.HeartbeatIntervalSeconds) * time.Second
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	go func() {
		defer closeDone()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Read messages in background to detect connection close
	go func() {
		defer closeDone()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case alert := <-sub.Channel:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(streamMessage{Type: "alert", Data: alert}); err != nil {
				h.logger.Debugf("WebSocket write error: %v", err)
				return
			}
		}
	}
}
