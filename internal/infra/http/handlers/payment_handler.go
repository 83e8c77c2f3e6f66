package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liguemed/membership-core/internal/infra/http/middleware"
	"github.com/liguemed/membership-core/internal/usecase"
)

type paymentVerifier interface {
	Execute(ctx context.Context, actor usecase.Actor, in usecase.VerifyPaymentInput) (*usecase.VerifyPaymentOutput, error)
}

type paymentResubmitter interface {
	Execute(ctx context.Context, actor usecase.Actor, in usecase.ResubmitPaymentInput) (*usecase.ResubmitPaymentOutput, error)
}

type leadConverter interface {
	Execute(ctx context.Context, tenantID string, in usecase.ConvertLeadInput) (*usecase.ConversionResult, error)
}

type PaymentHandler struct {
	Verifier    paymentVerifier
	Resubmitter paymentResubmitter
	Converter   leadConverter
}

func NewPaymentHandler(verifier paymentVerifier, resubmitter paymentResubmitter, converter leadConverter) *PaymentHandler {
	return &PaymentHandler{Verifier: verifier, Resubmitter: resubmitter, Converter: converter}
}

type verifyRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note,omitempty"`
}

func (h *PaymentHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing actor identity"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	out, err := h.Verifier.Execute(r.Context(), actor, usecase.VerifyPaymentInput{
		AttemptID: chi.URLParam(r, "attemptID"),
		Decision:  usecase.Decision(req.Decision),
		Note:      req.Note,
	})
	if err != nil {
		middleware.RecordVerification(req.Decision, "error")
		writeError(w, err)
		return
	}

	middleware.RecordVerification(req.Decision, out.Status)
	if out.Conversion != nil {
		middleware.RecordConversion()
	}
	writeJSON(w, http.StatusOK, out)
}

type resubmitRequest struct {
	Note string `json:"note,omitempty"`
}

func (h *PaymentHandler) HandleResubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing actor identity"})
		return
	}

	var req resubmitRequest
	if r.Body != nil {
		// Body is optional for resubmission.
		json.NewDecoder(r.Body).Decode(&req)
	}

	out, err := h.Resubmitter.Execute(r.Context(), actor, usecase.ResubmitPaymentInput{
		AttemptID: chi.URLParam(r, "attemptID"),
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type convertRequest struct {
	PlanID string `json:"plan_id,omitempty"`
}

func (h *PaymentHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing actor identity"})
		return
	}

	var req convertRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.Converter.Execute(r.Context(), actor.TenantID, usecase.ConvertLeadInput{
		LeadID: chi.URLParam(r, "leadID"),
		PlanID: req.PlanID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		// Idempotent no-op: the lead is already a member.
		writeJSON(w, http.StatusOK, map[string]any{"converted": false})
		return
	}

	middleware.RecordConversion()
	writeJSON(w, http.StatusCreated, result)
}
