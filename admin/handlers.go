package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/bridge"
	"github.com/tonearm/tonearm/client"
	"github.com/tonearm/tonearm/notify"
)

// Handlers serves the HTTP status API over the running client
type Handlers struct {
	clients *client.MultiHostClient
	hub     *notify.Hub
	bridge  *bridge.Registry // may be nil when no sinks are configured
	started time.Time
}

// NewHandlers creates a Handlers instance. bridgeRegistry may be nil.
func NewHandlers(clients *client.MultiHostClient, hub *notify.Hub, bridgeRegistry *bridge.Registry) *Handlers {
	return &Handlers{
		clients: clients,
		hub:     hub,
		bridge:  bridgeRegistry,
		started: time.Now(),
	}
}

type hostInfo struct {
	Host      string `json:"host"`
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
}

func (h *Handlers) hostInfos() []hostInfo {
	clients := h.clients.Clients()
	hosts := make([]hostInfo, 0, len(clients))
	for _, c := range clients {
		hosts = append(hosts, hostInfo{
			Host:      c.Host(),
			Connected: c.IsConnected(),
			Version:   c.Version(),
		})
	}
	return hosts
}

// handleHosts reports per-host connectivity
func (h *Handlers) handleHosts(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, h.hostInfos())
}

// handleStatus reports connectivity plus the current player status of
// the most relevant host
func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := map[string]any{
		"hosts": h.hostInfos(),
	}

	reqCtx, reqCancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer reqCancel()

	status, err := h.clients.Status(reqCtx)
	if err != nil {
		result["player"] = nil
		result["player_error"] = err.Error()
	} else {
		result["player"] = status
	}

	song, err := h.clients.CurrentSong(reqCtx)
	if err == nil && song != nil {
		result["song"] = song
	}

	writeJSONResponse(w, result)
}

// handleStats reports hub and bridge counters
func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	subscribers, published, dropped := h.hub.Stats()

	result := map[string]any{
		"uptime_seconds":   int64(time.Since(h.started).Seconds()),
		"subscribers":      subscribers,
		"events_published": published,
		"events_dropped":   dropped,
	}
	if h.bridge != nil {
		result["sinks"] = h.bridge.Workers()
	}

	writeJSONResponse(w, result)
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode admin response")
	}
}

// writeErrorResponse writes a JSON error with the given status
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
