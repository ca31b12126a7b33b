package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cashbook/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as a bare 500 so internals never leak to clients.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case isValidationError(err):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDirection,
		core.ErrInvalidMovement,
		core.ErrInvalidQuantity,
		core.ErrInvalidSlotIndex,
		core.ErrEmptyName,
		core.ErrEmptyCategory,
		core.ErrInvalidDate,
		core.ErrRemarksTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// decodeJSON decodes the request body, rejecting unknown fields so typos
// in client payloads fail loudly instead of silently dropping data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
