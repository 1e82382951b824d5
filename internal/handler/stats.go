package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/coursewatch/internal/service"
)

// StatsHandler serves per-viewer anti-cheat statistics.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleStats returns the statistics of the authenticated viewer.
// GET /api/stats
// Response: {"stats": {...}}
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	st, err := h.stats.ForViewer(r.Context(), user.ID)
	if err != nil {
		slog.Error("viewer stats", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": st})
}
