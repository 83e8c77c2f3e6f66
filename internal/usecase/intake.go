package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/resilience"
)

type CreateLeadInput struct {
	BranchID  string `json:"branch_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type CreateAttemptInput struct {
	LeadID      string               `json:"lead_id"`
	Method      entity.PaymentMethod `json:"method"`
	AmountCents int64                `json:"amount_cents"`
	Currency    string               `json:"currency"`
}

// IntakeUseCase is the agent-facing entry: capture a lead and record
// payment attempts against it.
type IntakeUseCase struct {
	Tx    TxManager
	Retry *resilience.Retrier
	Log   *zap.SugaredLogger
}

func NewIntakeUseCase(tx TxManager, retry *resilience.Retrier, log *zap.SugaredLogger) *IntakeUseCase {
	return &IntakeUseCase{Tx: tx, Retry: retry, Log: log}
}

func (uc *IntakeUseCase) CreateLead(ctx context.Context, actor Actor, in CreateLeadInput) (*entity.Lead, error) {
	lead, err := entity.NewLead(actor.TenantID, in.BranchID, actor.ID, in.FirstName, in.LastName, in.Email)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	err = uc.Retry.Do(ctx, func(ctx context.Context) error {
		return uc.Tx.WithinTx(ctx, func(ctx context.Context, s Store) error {
			return s.Leads().Create(ctx, lead)
		})
	})
	if err != nil {
		return nil, &InternalError{Message: "creating lead", Err: err}
	}

	uc.Log.Infow("lead captured", "lead_id", lead.ID, "agent_id", actor.ID)
	return lead, nil
}

// CreateAttempt records a payment attempt and moves a fresh lead into
// payment_pending so the verification workflow can later convert it.
func (uc *IntakeUseCase) CreateAttempt(ctx context.Context, actor Actor, in CreateAttemptInput) (*entity.PaymentAttempt, error) {
	var attempt *entity.PaymentAttempt

	err := uc.Retry.Do(ctx, func(ctx context.Context) error {
		return uc.Tx.WithinTx(ctx, func(ctx context.Context, s Store) error {
			lead, err := s.Leads().FindByIDForUpdate(ctx, actor.TenantID, in.LeadID)
			if err != nil {
				return err
			}
			if lead.AgentID != actor.ID {
				return &ForbiddenError{Message: "only the lead's assigned agent may record payments"}
			}
			if lead.Status.Terminal() {
				return &ConflictError{
					Message:       "lead can no longer receive payments",
					CurrentStatus: string(lead.Status),
				}
			}

			attempt, err = entity.NewPaymentAttempt(actor.TenantID, lead.ID, in.Method, in.AmountCents, in.Currency)
			if err != nil {
				return &ValidationError{Message: err.Error()}
			}
			if err := s.Attempts().Create(ctx, attempt); err != nil {
				return err
			}

			if lead.Status == entity.LeadStatusNew || lead.Status == entity.LeadStatusContacted {
				return s.Leads().SetStatus(ctx, actor.TenantID, lead.ID, entity.LeadStatusPaymentPending)
			}
			return nil
		})
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, &InternalError{Message: "recording payment attempt", Err: err}
	}

	uc.Log.Infow("payment attempt recorded",
		"attempt_id", attempt.ID, "lead_id", in.LeadID, "method", in.Method)
	return attempt, nil
}
