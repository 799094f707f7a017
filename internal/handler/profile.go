package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/auth"
	"github.com/devpulse/devpulse/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGet returns a profile by username or user ID.
//
// HTTP: GET /api/users/{identifier}
//
// The owner gets the full profile straight from the store. Everyone else
// gets the public page, which may come from the page cache and respects
// the owner's privacy settings.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	viewer, _ := auth.UserIDFromContext(r.Context())

	own, page, err := h.profiles.View(r.Context(), identifier, viewer)
	if err != nil {
		h.logger.Error("loading profile failed", slog.String("identifier", identifier), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	switch {
	case own != nil:
		writeJSON(w, http.StatusOK, own)
	case page != nil:
		writeRawJSON(w, http.StatusOK, page)
	default:
		writeError(w, apperror.NotFound("profile", identifier))
	}
}

// HandleMe returns the signed-in user's own profile, provisioning the local
// record on first visit.
//
// HTTP: GET /api/me
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.EnsureOwner(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate applies a partial profile edit.
//
// HTTP: PATCH /api/me
// REQUEST BODY: {"username": "Alice Dev", "bio": "", "socials": {"github": "..."}}
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var in service.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.profiles.Update(r.Context(), userID, in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
