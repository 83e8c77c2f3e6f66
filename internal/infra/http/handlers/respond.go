package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/liguemed/membership-core/internal/resilience"
	"github.com/liguemed/membership-core/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"current_status,omitempty"`
}

// writeError maps the workflow error taxonomy onto HTTP statuses so the
// caller can render an actionable message.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *usecase.ValidationError
		nf *usecase.NotFoundError
		fe *usecase.ForbiddenError
		ce *usecase.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
	case errors.As(err, &fe):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: fe.Error()})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorResponse{Error: ce.Message, CurrentStatus: ce.CurrentStatus})
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dependency temporarily unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
