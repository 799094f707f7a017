package handler

import (
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/auth"
	"github.com/devpulse/devpulse/internal/service"
)

type AccountHandler struct {
	accounts  *service.AccountService
	signInURL string
	logger    *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, signInURL string, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, signInURL: signInURL, logger: logger}
}

type deleteAccountResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// HandleDelete deletes the signed-in user's account everywhere.
//
// HTTP: POST /api/account/delete
//
// On success the session cookie is cleared and the client is told where to
// go next. A failure keeps the session so the user can retry.
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	if _, err := h.accounts.Delete(r.Context(), userID); err != nil {
		status, _, appErr, typed := errorStatus(err)
		msg := "Failed to delete account."
		if typed {
			msg = appErr.Message
		}
		writeJSON(w, status, deleteAccountResponse{Success: false, Error: msg})
		return
	}

	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, deleteAccountResponse{Success: true, Redirect: h.signInURL})
}
