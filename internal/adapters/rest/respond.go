package rest

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/core/ranking"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
)

const (
	errCodeNoConfidentMatch = "NO_CONFIDENT_MATCH"
	errCodeInvalidArgument  = "INVALID_ARGUMENT"
	errCodeNotFound         = "NOT_FOUND"
	errCodeUnavailable      = "UNAVAILABLE"
	errCodeInternal         = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ranking.ErrInvalidLimit):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
	case errors.Is(err, ports.ErrNoConfidentMatch):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeNoConfidentMatch)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotFound)
	case errors.Is(err, services.ErrSearchUnavailable), errors.Is(err, services.ErrPlaylistsUnavailable):
		writeErrorWithCode(w, http.StatusNotImplemented, err.Error(), errCodeUnavailable)
	default:
		h.log.Error().Err(err).Msg("request failed")
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternal)
	}
}
