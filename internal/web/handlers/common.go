package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a kiosk error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, portal.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, attendance.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, attendance.ErrNoFace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrNoMatch), errors.Is(err, attendance.ErrNotInRoster):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrIncompleteEnrollment):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrRemoteRejected),
		errors.Is(err, attendance.ErrWrongMode),
		errors.Is(err, attendance.ErrDiscarded),
		errors.Is(err, attendance.ErrCameraInactive):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, portal.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
