package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/infra/http/middleware"
	"github.com/liguemed/membership-core/internal/usecase"
)

type leadIntake interface {
	CreateLead(ctx context.Context, actor usecase.Actor, in usecase.CreateLeadInput) (*entity.Lead, error)
	CreateAttempt(ctx context.Context, actor usecase.Actor, in usecase.CreateAttemptInput) (*entity.PaymentAttempt, error)
}

type LeadHandler struct {
	Intake leadIntake
}

func NewLeadHandler(intake leadIntake) *LeadHandler {
	return &LeadHandler{Intake: intake}
}

func (h *LeadHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing actor identity"})
		return
	}

	var req usecase.CreateLeadInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	lead, err := h.Intake.CreateLead(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

type createAttemptRequest struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (h *LeadHandler) HandleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing actor identity"})
		return
	}

	var req createAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	attempt, err := h.Intake.CreateAttempt(r.Context(), actor, usecase.CreateAttemptInput{
		LeadID:      chi.URLParam(r, "leadID"),
		Method:      entity.PaymentMethod(req.Method),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}
