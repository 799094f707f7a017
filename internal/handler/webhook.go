package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/service"
)

// WebhookHandler receives signed account lifecycle events from the
// identity provider.
type WebhookHandler struct {
	verifier *identity.Verifier // nil when no signing secret is configured
	sync     *service.SyncService
	logger   *slog.Logger
}

func NewWebhookHandler(verifier *identity.Verifier, sync *service.SyncService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, sync: sync, logger: logger}
}

// WebhookAck is the success body.
type WebhookAck struct {
	OK    bool   `json:"ok"`
	Event string `json:"event"`
}

// HandleIdentityEvent verifies and applies one event.
//
// HTTP: POST /api/webhooks/clerk
//
// The body is read whole before verification: the signature covers the
// exact bytes, so it must not be decoded and re-encoded first.
func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		h.logger.Error("webhook received but no signing secret is configured")
		writeError(w, apperror.Misconfigured("Webhook secret is not configured."))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "Could not read request body"))
		return
	}

	evt, err := h.verifier.Verify(payload, r.Header)
	if err != nil {
		h.logger.Warn("webhook rejected", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, identity.ErrMissingHeaders):
			writeError(w, apperror.ValidationFailed("headers", "Missing svix headers"))
		case errors.Is(err, identity.ErrInvalidSignature):
			writeError(w, apperror.ValidationFailed("signature", "Invalid signature"))
		default:
			writeError(w, apperror.ValidationFailed("body", "Malformed event payload"))
		}
		return
	}

	if err := h.sync.HandleEvent(r.Context(), evt); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			writeError(w, err)
			return
		}
		h.logger.Error("webhook processing failed",
			slog.String("type", evt.Type),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Webhook processing failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, WebhookAck{OK: true, Event: evt.Type})
}
