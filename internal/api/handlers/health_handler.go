package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/notebook-be/internal/monitoring"
	"github.com/isdelr/notebook-be/internal/store"
	"github.com/rs/zerolog/log"
)

// StatsSource reports process resource usage.
type StatsSource interface {
	Stats(ctx context.Context) monitoring.SystemStats
}

// HealthHandler serves liveness endpoints.
type HealthHandler struct {
	stats       StatsSource
	store       store.Store
	pingMessage string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(stats StatsSource, st store.Store, pingMessage string) *HealthHandler {
	return &HealthHandler{stats: stats, store: st, pingMessage: pingMessage}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	monitoring.SystemStats
	Store string `json:"store"`
}

// Ping answers with the configured ping message.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": h.pingMessage})
}

// Health reports process stats and whether the store is readable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		SystemStats: h.stats.Stats(r.Context()),
		Store:       h.store.Backend(),
	}
	if _, err := h.store.Sessions().Read(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Health check could not read the store")
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
