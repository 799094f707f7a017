package handler

import (
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/auth"
	"github.com/devpulse/devpulse/internal/identity"
)

// SessionHandler ends the session the provider opens right after sign-up,
// so the new user signs in fresh.
type SessionHandler struct {
	provider  identity.Provider
	signInURL string
	logger    *slog.Logger
}

func NewSessionHandler(provider identity.Provider, signInURL string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{provider: provider, signInURL: signInURL, logger: logger}
}

// HandlePostSignup: GET /post-signup → 303 to the sign-in page.
func (h *SessionHandler) HandlePostSignup(w http.ResponseWriter, r *http.Request) {
	if s, ok := auth.SessionFromContext(r.Context()); ok && s.SessionID != "" {
		if err := h.provider.RevokeSession(r.Context(), s.SessionID); err != nil {
			h.logger.Warn("revoking post-signup session failed",
				slog.String("user_id", s.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, h.signInURL, http.StatusSeeOther)
}
