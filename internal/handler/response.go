// Package handler is the HTTP layer: it decodes requests, calls one service
// method and encodes the result. No business rules live here.
package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "not_found", "message": "user not found with id user_2abc"}
//
// The frontend always knows which fields to expect, whether the status is
// 400, 404 or 502. Nothing here ever falls through to a framework error page.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/auth"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// SuccessResponse is the acknowledgement returned by action endpoints.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status MUST be set before the body is written; once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeRawJSON sends an already-encoded JSON body.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write JSON response", slog.String("error", err.Error()))
	}
}

// errorStatus maps a domain error to its HTTP status and machine-readable
// kind. ok is false when err carries no *apperror.AppError.
//
// errors.Is walks the whole chain, so a service may wrap an AppError with
// fmt.Errorf("...: %w", err) and the mapping still holds.
func errorStatus(err error) (status int, kind string, appErr *apperror.AppError, ok bool) {
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", nil, false
	}
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr, true
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr, true
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", appErr, true
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr, true
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr, true
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error", appErr, true
	case errors.Is(err, apperror.ErrConfig):
		return http.StatusInternalServerError, "config_error", appErr, true
	}
	return http.StatusInternalServerError, "internal_error", appErr, true
}

// writeError maps a domain error to the appropriate HTTP status code and
// sends it. Unknown errors become a generic 500: raw messages may contain
// SQL or file paths and never reach the client.
func writeError(w http.ResponseWriter, err error) {
	status, kind, appErr, ok := errorStatus(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// ownerID returns the signed-in user's ID, writing a 401 when there is none.
// Routes behind auth.RequireAuth always have one.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return "", false
	}
	return id, true
}

// NotFound and MethodNotAllowed keep unknown routes on the JSON contract.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no route for " + r.URL.Path})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: r.Method + " is not supported on " + r.URL.Path,
	})
}
