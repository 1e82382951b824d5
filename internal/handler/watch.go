package handler

import (
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/coursewatch/internal/service"
	"github.com/msomdec/coursewatch/internal/view"
)

// WatchHandler exposes watch sessions to the video player.
type WatchHandler struct {
	validations *service.ValidationService
}

// NewWatchHandler creates a new WatchHandler.
func NewWatchHandler(validations *service.ValidationService) *WatchHandler {
	return &WatchHandler{validations: validations}
}

// HandleStart opens or rejoins a watch session.
// POST /api/watch/sessions
// Request:  {"unitId":"...","analyticsId":"..."}
// Response: {"session": {...}}
func (h *WatchHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	var req struct {
		UnitID      string `json:"unitId"`
		AnalyticsID string `json:"analyticsId"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	snap, err := h.validations.Start(r.Context(), user.ID, req.UnitID, req.AnalyticsID)
	if err != nil {
		writeServiceError(w, err, "start watch session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session": toSessionDTO(snap),
	})
}

// HandleEvent applies one player event.
// POST /api/watch/sessions/{id}/events
// Request:  {"type":"timeupdate","position":12.5,"duration":600,"playing":true}
// Response: session snapshot
func (h *WatchHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	var req struct {
		Type     string  `json:"type"`
		Position float64 `json:"position"`
		Duration float64 `json:"duration"`
		Playing  bool    `json:"playing"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	snap, err := h.validations.HandleEvent(r.Context(), user.ID, r.PathValue("id"), service.Event{
		Type:     service.EventType(req.Type),
		Position: req.Position,
		Duration: req.Duration,
		Playing:  req.Playing,
	})
	if err != nil {
		writeServiceError(w, err, "handle player event")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(snap))
}

// HandleGet returns the live session or its last saved state.
// GET /api/watch/sessions/{id}
func (h *WatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	snap, err := h.validations.Status(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "get watch session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(snap))
}

// HandleSave persists the current state of a live session.
// POST /api/watch/sessions/{id}/save
func (h *WatchHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	snap, err := h.validations.Save(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "save watch session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(snap))
}

// HandleEnd saves and closes a live session.
// DELETE /api/watch/sessions/{id}
// Response: 204 No Content
func (h *WatchHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.validations.End(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeServiceError(w, err, "end watch session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tickSignals are the datastar signals the player page sends on each tick.
type tickSignals struct {
	Event    string  `json:"event"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Playing  bool    `json:"playing"`
}

// HandleTick is the datastar variant of HandleEvent: it reads the player
// state from signals and patches the status fragment and derived signals.
// POST /watch/sessions/{id}/tick
func (h *WatchHandler) HandleTick(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var signals tickSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid signals.")
		return
	}
	if signals.Event == "" {
		signals.Event = string(service.EventTimeUpdate)
	}

	snap, err := h.validations.HandleEvent(r.Context(), user.ID, r.PathValue("id"), service.Event{
		Type:     service.EventType(signals.Event),
		Position: signals.Position,
		Duration: signals.Duration,
		Playing:  signals.Playing,
	})
	if err != nil {
		writeServiceError(w, err, "handle player tick")
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(map[string]any{
		"event":             "",
		"canComplete":       snap.State.CanComplete,
		"cheatScore":        snap.State.CheatScore,
		"validWatchTime":    snap.State.ValidWatchTime,
		"completionPercent": snap.CompletionPercent,
		"completed":         snap.Completed,
	}); err != nil {
		slog.Error("patch watch signals", "error", err)
		return
	}
	if err := sse.PatchElementTempl(
		view.WatchStatus(snap.Status, snap.CompletionPercent, snap.Completed),
		datastar.WithSelectorID(view.StatusElementID),
	); err != nil {
		slog.Error("patch watch status", "error", err)
	}
}
