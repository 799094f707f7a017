package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/media"
)

type MediaHandler struct {
	signer *media.Signer
	logger *slog.Logger
}

func NewMediaHandler(signer *media.Signer, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{signer: signer, logger: logger}
}

type signatureError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// HandleSignature issues a one-off upload signature.
//
// HTTP: GET /api/media/signature?folder=devpulse_posts
//
// Without ?folder= the default avatar folder is signed.
func (h *MediaHandler) HandleSignature(w http.ResponseWriter, r *http.Request) {
	// Every response carries a fresh timestamp; never let a proxy reuse one.
	w.Header().Set("Cache-Control", "no-store, max-age=0")

	sig, err := h.signer.Sign(r.URL.Query().Get("folder"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperror.ErrValidation) {
			status = http.StatusBadRequest
		} else {
			h.logger.Error("upload signature failed", slog.String("error", err.Error()))
		}
		details := "internal error"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			details = appErr.Message
		}
		writeJSON(w, status, signatureError{
			Error:   "Failed to generate upload signature",
			Details: details,
		})
		return
	}
	writeJSON(w, http.StatusOK, sig)
}
