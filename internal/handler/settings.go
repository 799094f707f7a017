package handler

import (
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/service"
)

type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// HandleGet returns the user's settings with every default filled in.
//
// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	s, err := h.settings.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandlePatch deep-merges the body into the stored settings.
//
// HTTP: PATCH /api/settings
// REQUEST BODY: {"privacy": {"hideEmail": false}}
func (h *SettingsHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.settings.Patch(r.Context(), userID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
