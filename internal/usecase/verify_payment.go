package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/resilience"
)

type Decision string

const (
	DecisionApprove   Decision = "approve"
	DecisionReject    Decision = "reject"
	DecisionNeedsInfo Decision = "needs_info"
)

// Replay statuses returned when a decision hits an attempt that is
// already in the matching terminal state.
const (
	StatusAlreadyApproved = "already_approved"
	StatusAlreadyRejected = "already_rejected"
)

type VerifyPaymentInput struct {
	AttemptID string   `json:"attempt_id"`
	Decision  Decision `json:"decision"`
	Note      string   `json:"note,omitempty"`
}

type VerifyPaymentOutput struct {
	Status     string            `json:"status"`
	Conversion *ConversionResult `json:"conversion,omitempty"`
}

// VerifyPaymentUseCase is the back-office review of a payment attempt:
// approve, reject or request more information. Every precondition is
// checked inside the same transaction as the write, and an approval
// converts the lead in that same transaction.
type VerifyPaymentUseCase struct {
	Tx        TxManager
	Converter *ConvertLeadUseCase
	Notifier  NotificationDispatcher
	Retry     *resilience.Retrier
	AgentLink string // base URL for the "open attempt" link in notices
	Log       *zap.SugaredLogger
}

func NewVerifyPaymentUseCase(
	tx TxManager,
	converter *ConvertLeadUseCase,
	notifier NotificationDispatcher,
	retry *resilience.Retrier,
	agentLink string,
	log *zap.SugaredLogger,
) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{
		Tx:        tx,
		Converter: converter,
		Notifier:  notifier,
		Retry:     retry,
		AgentLink: agentLink,
		Log:       log,
	}
}

func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, actor Actor, in VerifyPaymentInput) (*VerifyPaymentOutput, error) {
	// Input validation happens before any state is read.
	if in.AttemptID == "" {
		return nil, &ValidationError{Field: "attempt_id", Message: "attempt id is required"}
	}
	switch in.Decision {
	case DecisionApprove, DecisionReject, DecisionNeedsInfo:
	default:
		return nil, &ValidationError{Field: "decision", Message: "decision must be approve, reject or needs_info"}
	}
	note := strings.TrimSpace(in.Note)
	if note == "" && in.Decision != DecisionApprove {
		return nil, &ValidationError{Field: "note", Message: "a note is required when rejecting or requesting information"}
	}

	var (
		out    *VerifyPaymentOutput
		notice *DecisionNotice
	)

	err := uc.Retry.Do(ctx, func(ctx context.Context) error {
		out = nil
		notice = nil
		return uc.Tx.WithinTx(ctx, func(ctx context.Context, s Store) error {
			// Plain read first to learn the lead, then lock lead before
			// attempt per the global acquisition order.
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
			agent, err := s.Users().FindByID(ctx, actor.TenantID, lead.AgentID)
			if err != nil {
				return err
			}

			// An agent may never verify their own lead's payment.
			if lead.AgentID == actor.ID {
				return &ForbiddenError{Message: "reviewers cannot verify payments for their own leads"}
			}

			if !attempt.Open() {
				// Idempotent replay: a repeated matching decision
				// succeeds without touching anything.
				switch {
				case in.Decision == DecisionApprove && attempt.Status == entity.AttemptStatusSucceeded:
					out = &VerifyPaymentOutput{Status: StatusAlreadyApproved}
					return nil
				case in.Decision == DecisionReject && attempt.Status == entity.AttemptStatusRejected:
					out = &VerifyPaymentOutput{Status: StatusAlreadyRejected}
					return nil
				}
				return &ConflictError{
					Message:       "attempt is no longer open for verification",
					CurrentStatus: string(attempt.Status),
				}
			}

			previous := attempt.Status
			now := time.Now().UTC()
			attempt.Status = decisionStatus(in.Decision)
			attempt.IsResubmission = false
			attempt.VerifiedBy = &actor.ID
			attempt.VerifiedAt = &now
			if note != "" {
				attempt.VerificationNote = &note
			}
			if err := s.Attempts().ApplyDecision(ctx, attempt); err != nil {
				return err
			}

			meta := map[string]any{
				"previous_status": string(previous),
				"new_status":      string(attempt.Status),
				"amount_cents":    attempt.AmountCents,
				"currency":        attempt.Currency,
			}
			if note != "" {
				meta["note"] = note
			}

			out = &VerifyPaymentOutput{Status: string(attempt.Status)}

			if in.Decision == DecisionApprove {
				if lead.Convertible() {
					res, err := uc.Converter.ExecuteInTx(ctx, s, lead, "")
					if err != nil {
						return err
					}
					out.Conversion = res
					if res != nil {
						meta["converted_user_id"] = res.UserID
						meta["member_number"] = res.MemberNumber
					}
				} else {
					// Approval never overrides a disqualification or any
					// other non-convertible status.
					uc.Log.Infow("payment approved without conversion",
						"lead_id", lead.ID, "lead_status", lead.Status)
				}
			} else {
				notice = &DecisionNotice{
					AgentID:     agent.ID,
					Email:       agent.Email,
					LeadName:    lead.FullName(),
					AmountCents: attempt.AmountCents,
					Currency:    attempt.Currency,
					Status:      string(attempt.Status),
					Note:        note,
					Link:        uc.AgentLink + "/attempts/" + attempt.ID,
				}
			}

			event := entity.NewAuditEvent(actor.TenantID, actor.ID, actor.Role,
				decisionAction(in.Decision), entity.EntityTypePaymentAttempt, attempt.ID, meta)
			return s.Audit().Record(ctx, event)
		})
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, &InternalError{Message: "verifying payment attempt", Err: err}
	}

	// The notice leaves the building after commit, best effort. A lost
	// email must never roll back a recorded decision.
	if notice != nil {
		if nerr := uc.Notifier.DispatchDecision(ctx, *notice); nerr != nil {
			uc.Log.Warnw("decision notification dispatch failed",
				"attempt_id", in.AttemptID, "agent_id", notice.AgentID, "err", nerr)
		}
	}

	return out, nil
}

func decisionStatus(d Decision) entity.AttemptStatus {
	switch d {
	case DecisionApprove:
		return entity.AttemptStatusSucceeded
	case DecisionReject:
		return entity.AttemptStatusRejected
	default:
		return entity.AttemptStatusNeedsInfo
	}
}

func decisionAction(d Decision) string {
	switch d {
	case DecisionApprove:
		return entity.ActionVerifyPaymentApprove
	case DecisionReject:
		return entity.ActionVerifyPaymentReject
	default:
		return entity.ActionVerifyPaymentNeedsInfo
	}
}
