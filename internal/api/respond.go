package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/accounthub/internal/auth"
)

// Every response uses the same envelope: {success, message, data} on the
// happy path, {success, message, errors} on failure. Clients branch on the
// success flag, never on status code alone.

// successEnvelope is the response body for successful requests.
type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorEnvelope is the response body for failed requests.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

// fieldError describes a single invalid form field.
type fieldError struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// writeSuccess writes the success envelope with the given message and data.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Message: message, Data: data})
}

// writeFailure writes the error envelope with the given message and detail.
func writeFailure(w http.ResponseWriter, status int, message string, errs any) {
	writeJSON(w, status, errorEnvelope{Success: false, Message: message, Errors: errs})
}

// writeFormErrors writes a 403 validation failure with per-field details.
func writeFormErrors(w http.ResponseWriter, fields []fieldError) {
	writeFailure(w, http.StatusForbidden, "Something wrong", fields)
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeAuthError maps auth sentinel errors to the envelope and status.
//
// Authentication failures (including token lookups, which fold not-found
// into 401 to avoid existence leaks) map to 401. Authorization failures
// map to 403. Everything else is a generic 500 with no internal detail.
func (s *Server) writeAuthError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionStale),
		errors.Is(err, auth.ErrPrincipalNotFound),
		errors.Is(err, auth.ErrAlreadyAuthenticated),
		errors.Is(err, auth.ErrTokenNotFound),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenTypeMismatch),
		errors.Is(err, auth.ErrAlreadyVerified),
		errors.Is(err, auth.ErrUsernameExists),
		errors.Is(err, auth.ErrEmailExists):
		writeFailure(w, http.StatusUnauthorized, message, errorDetail(err))
	case errors.Is(err, auth.ErrForbidden):
		writeFailure(w, http.StatusForbidden, message, errorDetail(err))
	case errors.Is(err, auth.ErrRoleNotFound), errors.Is(err, auth.ErrRoleExists):
		writeFailure(w, http.StatusForbidden, message, errorDetail(err))
	default:
		s.logger.Error("unexpected error", "error", err)
		writeFailure(w, http.StatusInternalServerError, message, nil)
	}
}

// errorDetail renders a sentinel error as the structured detail clients see.
// Only the sentinel text is exposed, never wrapped internals.
func errorDetail(err error) []fieldError {
	for _, sentinel := range []error{
		auth.ErrInvalidCredentials, auth.ErrInvalidToken, auth.ErrSessionStale,
		auth.ErrPrincipalNotFound, auth.ErrForbidden, auth.ErrAlreadyAuthenticated,
		auth.ErrTokenNotFound, auth.ErrTokenExpired, auth.ErrTokenTypeMismatch,
		auth.ErrAlreadyVerified, auth.ErrUsernameExists, auth.ErrEmailExists,
		auth.ErrRoleNotFound, auth.ErrRoleExists,
	} {
		if errors.Is(err, sentinel) {
			return []fieldError{{Type: "auth", Detail: sentinel.Error()}}
		}
	}
	return nil
}
