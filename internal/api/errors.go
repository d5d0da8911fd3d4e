package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parkpilot/parkpilot-core/internal/graph"
	"github.com/parkpilot/parkpilot-core/internal/parking"
	"github.com/parkpilot/parkpilot-core/internal/routing"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps parking, graph and routing sentinel errors to
// HTTP responses: absence to 404, transition guard failures to 409,
// malformed input to 400, reachability failures to 404 with the domain
// message. Anything unrecognised becomes a 500 with a generic body so
// internal detail never leaks.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, parking.ErrLotNotFound),
		errors.Is(err, parking.ErrNodeNotFound),
		errors.Is(err, parking.ErrNoLots),
		errors.Is(err, graph.ErrGraphNotFound),
		errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, routing.ErrNodeNotFound),
		errors.Is(err, routing.ErrNoPath),
		errors.Is(err, routing.ErrNoExits),
		errors.Is(err, routing.ErrNoSpot):
		writeNotFound(w, err.Error())

	case errors.Is(err, parking.ErrNotAvailable),
		errors.Is(err, parking.ErrNotReserved),
		errors.Is(err, parking.ErrNotOccupied):
		writeConflict(w, err.Error())

	case errors.Is(err, parking.ErrInvalidStatus):
		writeBadRequest(w, err.Error())

	default:
		writeInternalError(w, "internal server error")
	}
}
