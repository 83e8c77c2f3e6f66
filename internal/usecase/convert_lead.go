package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/resilience"
)

// ConversionResult carries the three identifiers one successful
// conversion produces. A nil result means the lead was already converted
// and nothing was done.
type ConversionResult struct {
	UserID         string `json:"user_id"`
	MemberNumber   string `json:"member_number"`
	SubscriptionID string `json:"subscription_id"`
}

type ConvertLeadInput struct {
	LeadID string `json:"lead_id"`
	PlanID string `json:"plan_id,omitempty"`
}

// ConvertLeadUseCase atomically turns a lead into a member: user record,
// member number, subscription and membership card, created in one
// transaction or not at all.
type ConvertLeadUseCase struct {
	Tx    TxManager
	Retry *resilience.Retrier
	Log   *zap.SugaredLogger
}

func NewConvertLeadUseCase(tx TxManager, retry *resilience.Retrier, log *zap.SugaredLogger) *ConvertLeadUseCase {
	return &ConvertLeadUseCase{Tx: tx, Retry: retry, Log: log}
}

// Execute is the standalone entry point. It opens its own transaction,
// re-running it from scratch on transient storage failure.
func (uc *ConvertLeadUseCase) Execute(ctx context.Context, tenantID string, in ConvertLeadInput) (*ConversionResult, error) {
	if in.LeadID == "" {
		return nil, &ValidationError{Field: "lead_id", Message: "lead id is required"}
	}

	var result *ConversionResult
	err := uc.Retry.Do(ctx, func(ctx context.Context) error {
		result = nil
		return uc.Tx.WithinTx(ctx, func(ctx context.Context, s Store) error {
			lead, err := s.Leads().FindByIDForUpdate(ctx, tenantID, in.LeadID)
			if err != nil {
				return err
			}

			res, err := uc.ExecuteInTx(ctx, s, lead, in.PlanID)
			if err != nil {
				return err
			}
			result = res

			if res == nil {
				return nil
			}
			event := entity.NewAuditEvent(tenantID, "system", "system",
				entity.ActionConvertLead, entity.EntityTypeLead, lead.ID,
				map[string]any{
					"user_id":         res.UserID,
					"member_number":   res.MemberNumber,
					"subscription_id": res.SubscriptionID,
				})
			return s.Audit().Record(ctx, event)
		})
	})
	if err != nil {
		return nil, uc.wrap(err)
	}
	return result, nil
}

// ExecuteInTx runs the conversion inside the caller's transaction. The
// lead row must already be locked by the caller. Safe to invoke more
// than once: an already-converted lead yields (nil, nil) with no side
// effects.
func (uc *ConvertLeadUseCase) ExecuteInTx(ctx context.Context, s Store, lead *entity.Lead, planID string) (*ConversionResult, error) {
	if lead.Converted() {
		uc.Log.Infow("conversion skipped, lead already converted", "lead_id", lead.ID)
		return nil, nil
	}

	if planID == "" {
		planID = entity.DefaultPlanID
	}
	plan, err := s.Plans().FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	joinedAt := time.Now().UTC()
	user := entity.NewMemberFromLead(lead, joinedAt)
	sub := entity.NewSubscription(lead, user.ID, plan.ID, joinedAt)

	var memberNumber string

	// All writes go through the declared table order so concurrent
	// conversions and verifications acquire row locks in one sequence.
	txPlan := resilience.NewTxPlan()
	txPlan.Add(resilience.TableUsers, "create member user", func(ctx context.Context) error {
		return s.Users().Create(ctx, user)
	})
	txPlan.Add(resilience.TableMemberNumbers, "issue member number", func(ctx context.Context) error {
		number, err := s.MemberNumbers().Next(ctx, lead.TenantID, joinedAt)
		if err != nil {
			return err
		}
		memberNumber = number
		user.MemberNumber = &number
		return s.Users().SetMemberNumber(ctx, lead.TenantID, user.ID, number)
	})
	txPlan.Add(resilience.TableSubscriptions, "create subscription", func(ctx context.Context) error {
		return s.Subscriptions().Create(ctx, sub)
	})
	txPlan.Add(resilience.TableMembershipCards, "issue membership card", func(ctx context.Context) error {
		card, err := entity.NewMembershipCard(lead.TenantID, sub.ID, memberNumber, joinedAt)
		if err != nil {
			return err
		}
		return s.Cards().Create(ctx, card)
	})
	txPlan.Add(resilience.TableLeads, "mark lead converted", func(ctx context.Context) error {
		if err := s.Leads().MarkConverted(ctx, lead.TenantID, lead.ID, user.ID); err != nil {
			return err
		}
		lead.Status = entity.LeadStatusConverted
		lead.ConvertedUserID = &user.ID
		return nil
	})

	if err := txPlan.Execute(ctx); err != nil {
		return nil, err
	}

	uc.Log.Infow("lead converted",
		"lead_id", lead.ID,
		"user_id", user.ID,
		"member_number", memberNumber,
		"subscription_id", sub.ID,
	)

	return &ConversionResult{
		UserID:         user.ID,
		MemberNumber:   memberNumber,
		SubscriptionID: sub.ID,
	}, nil
}

// wrap surfaces exhausted transient failures as InternalError while
// letting the domain taxonomy through verbatim.
func (uc *ConvertLeadUseCase) wrap(err error) error {
	if isDomainError(err) {
		return err
	}
	return &InternalError{Message: "converting lead", Err: err}
}

func isDomainError(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		fe *ForbiddenError
		ce *ConflictError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &fe) || errors.As(err, &ce)
}
