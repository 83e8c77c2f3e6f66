package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodElectronic PaymentMethod = "electronic"
)

type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusSucceeded AttemptStatus = "succeeded"
	AttemptStatusRejected  AttemptStatus = "rejected"
	AttemptStatusNeedsInfo AttemptStatus = "needs_info"
)

// PaymentAttempt is one recorded try (cash or electronic) to pay the
// membership fee for a lead. Attempts are never deleted; the row is the
// audit trail of the payment itself.
type PaymentAttempt struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenant_id"`
	LeadID           string        `json:"lead_id"`
	Method           PaymentMethod `json:"method"`
	AmountCents      int64         `json:"amount_cents"`
	Currency         string        `json:"currency"`
	Status           AttemptStatus `json:"status"`
	IsResubmission   bool          `json:"is_resubmission"`
	VerifiedBy       *string       `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time    `json:"verified_at,omitempty"`
	VerificationNote *string       `json:"verification_note,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func NewPaymentAttempt(tenantID, leadID string, method PaymentMethod, amountCents int64, currency string) (*PaymentAttempt, error) {
	attempt := &PaymentAttempt{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		LeadID:      leadID,
		Method:      method,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      AttemptStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	return attempt, nil
}

func (a *PaymentAttempt) Validate() error {
	if a.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if a.LeadID == "" {
		return errors.New("lead id is required")
	}
	if a.Method != PaymentMethodCash && a.Method != PaymentMethodElectronic {
		return errors.New("method must be cash or electronic")
	}
	if a.AmountCents <= 0 {
		return errors.New("amount must be positive")
	}
	if a.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

// Open reports whether the attempt still accepts a verification decision.
func (a *PaymentAttempt) Open() bool {
	return a.Status == AttemptStatusPending || a.Status == AttemptStatusNeedsInfo
}

// Resubmittable reports whether the owning agent may move the attempt
// back to pending.
func (a *PaymentAttempt) Resubmittable() bool {
	return a.Status == AttemptStatusNeedsInfo || a.Status == AttemptStatusRejected
}
