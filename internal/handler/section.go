package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/service"
)

type SectionHandler struct {
	sections *service.SectionService
	logger   *slog.Logger
}

func NewSectionHandler(sections *service.SectionService, logger *slog.Logger) *SectionHandler {
	return &SectionHandler{sections: sections, logger: logger}
}

type saveSectionResponse struct {
	Success bool               `json:"success"`
	Item    *model.SectionItem `json:"item"`
}

// HandleSave creates an item, or updates it when the body carries an id.
//
// HTTP: POST /api/sections
// REQUEST BODY: {"key": "projects", "title": "...", "tags": "rust, cli"}
func (h *SectionHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var in service.SectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.sections.Save(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveSectionResponse{Success: true, Item: item})
}

// HandleDelete removes an item. Deleting an item twice succeeds both times.
//
// HTTP: DELETE /api/sections/{id}
func (h *SectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.sections.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
