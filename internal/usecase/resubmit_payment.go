package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/resilience"
)

type ResubmitPaymentInput struct {
	AttemptID string `json:"attempt_id"`
	Note      string `json:"note,omitempty"`
}

type ResubmitPaymentOutput struct {
	OK bool `json:"ok"`
}

// ResubmitPaymentUseCase lets the lead's own agent move a rejected or
// needs_info attempt back to pending for another review round. The prior
// reviewer note stays on the attempt until the next decision replaces it.
type ResubmitPaymentUseCase struct {
	Tx    TxManager
	Retry *resilience.Retrier
	Log   *zap.SugaredLogger
}

func NewResubmitPaymentUseCase(tx TxManager, retry *resilience.Retrier, log *zap.SugaredLogger) *ResubmitPaymentUseCase {
	return &ResubmitPaymentUseCase{Tx: tx, Retry: retry, Log: log}
}

func (uc *ResubmitPaymentUseCase) Execute(ctx context.Context, actor Actor, in ResubmitPaymentInput) (*ResubmitPaymentOutput, error) {
	if in.AttemptID == "" {
		return nil, &ValidationError{Field: "attempt_id", Message: "attempt id is required"}
	}
	note := strings.TrimSpace(in.Note)

	err := uc.Retry.Do(ctx, func(ctx context.Context) error {
		return uc.Tx.WithinTx(ctx, func(ctx context.Context, s Store) error {
			peek, err := s.Attempts().FindByID(ctx, actor.TenantID, in.AttemptID)
			if err != nil {
				return err
			}
			lead, err := s.Leads().FindByIDForUpdate(ctx, actor.TenantID, peek.LeadID)
			if err != nil {
				return err
			}
			attempt, err := s.Attempts().FindByIDForUpdate(ctx, actor.TenantID, in.AttemptID)
			if err != nil {
				return err
			}

			// Only the assigned agent may resubmit.
			if lead.AgentID != actor.ID {
				return &ForbiddenError{Message: "only the lead's assigned agent may resubmit a payment attempt"}
			}

			if !attempt.Resubmittable() {
				return &ConflictError{
					Message:       "attempt cannot be resubmitted",
					CurrentStatus: string(attempt.Status),
				}
			}

			previous := attempt.Status
			attempt.Status = entity.AttemptStatusPending
			attempt.IsResubmission = true
			if err := s.Attempts().MarkResubmitted(ctx, attempt); err != nil {
				return err
			}

			meta := map[string]any{
				"previous_status": string(previous),
				"new_status":      string(entity.AttemptStatusPending),
			}
			if note != "" {
				meta["agent_note"] = note
			}

			event := entity.NewAuditEvent(actor.TenantID, actor.ID, actor.Role,
				entity.ActionResubmitPayment, entity.EntityTypePaymentAttempt, attempt.ID, meta)
			return s.Audit().Record(ctx, event)
		})
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, &InternalError{Message: "resubmitting payment attempt", Err: err}
	}

	uc.Log.Infow("payment attempt resubmitted", "attempt_id", in.AttemptID, "agent_id", actor.ID)
	return &ResubmitPaymentOutput{OK: true}, nil
}
