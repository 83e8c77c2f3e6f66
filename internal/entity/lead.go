package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusNew            LeadStatus = "new"
	LeadStatusContacted      LeadStatus = "contacted"
	LeadStatusPaymentPending LeadStatus = "payment_pending"
	LeadStatusPaid           LeadStatus = "paid"
	LeadStatusConverted      LeadStatus = "converted"
	LeadStatusLost           LeadStatus = "lost"
	LeadStatusDisqualified   LeadStatus = "disqualified"
	LeadStatusExpired        LeadStatus = "expired"
)

// Terminal statuses can never be transitioned away from.
func (s LeadStatus) Terminal() bool {
	switch s {
	case LeadStatusConverted, LeadStatusLost, LeadStatusDisqualified, LeadStatusExpired:
		return true
	}
	return false
}

// Lead is a prospective member captured by a field agent.
type Lead struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	BranchID        string     `json:"branch_id"`
	AgentID         string     `json:"agent_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Status          LeadStatus `json:"status"`
	ConvertedUserID *string    `json:"converted_user_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewLead(tenantID, branchID, agentID, firstName, lastName, email string) (*Lead, error) {
	lead := &Lead{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		BranchID:  branchID,
		AgentID:   agentID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Status:    LeadStatusNew,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	return lead, nil
}

func (l *Lead) Validate() error {
	if l.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if l.AgentID == "" {
		return errors.New("agent id is required")
	}
	if l.FirstName == "" {
		return errors.New("first name is required")
	}
	if l.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

func (l *Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// Convertible reports whether an approved payment may advance this lead
// to converted. Any other status (disqualified, lost, ...) takes
// precedence over the approval and the lead is left untouched.
func (l *Lead) Convertible() bool {
	return l.Status == LeadStatusNew || l.Status == LeadStatusPaymentPending
}

// Converted reports whether the lead already materialized a member.
func (l *Lead) Converted() bool {
	return l.ConvertedUserID != nil || l.Status == LeadStatusConverted
}
