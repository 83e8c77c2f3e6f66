package entity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleMember = "member"
	RoleAgent  = "agent"

	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// User is a platform identity. Members are users with role "member" and
// a tenant-scoped member number issued at conversion.
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	BranchID     string    `json:"branch_id"`
	Role         string    `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	MemberNumber *string   `json:"member_number,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMemberFromLead builds the member identity a successful conversion
// materializes, inheriting tenant and branch from the lead.
func NewMemberFromLead(lead *Lead, joinedAt time.Time) *User {
	return &User{
		ID:        uuid.New().String(),
		TenantID:  lead.TenantID,
		BranchID:  lead.BranchID,
		Role:      RoleMember,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		JoinedAt:  joinedAt,
		CreatedAt: joinedAt,
	}
}

type Subscription struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	PlanID    string    `json:"plan_id"`
	AgentID   string    `json:"agent_id"`
	BranchID  string    `json:"branch_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSubscription(lead *Lead, userID, planID string, startedAt time.Time) *Subscription {
	return &Subscription{
		ID:        uuid.New().String(),
		TenantID:  lead.TenantID,
		UserID:    userID,
		PlanID:    planID,
		AgentID:   lead.AgentID,
		BranchID:  lead.BranchID,
		Status:    SubscriptionStatusActive,
		StartedAt: startedAt,
		CreatedAt: startedAt,
	}
}

// MembershipCard is the physical/digital card issued per subscription.
// QRToken is an opaque random lookup token printed as the card's QR code.
type MembershipCard struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	SubscriptionID string    `json:"subscription_id"`
	CardNumber     string    `json:"card_number"`
	QRToken        string    `json:"qr_token"`
	IssuedAt       time.Time `json:"issued_at"`
}

func NewMembershipCard(tenantID, subscriptionID, memberNumber string, issuedAt time.Time) (*MembershipCard, error) {
	token, err := randomToken(16)
	if err != nil {
		return nil, fmt.Errorf("generating card token: %w", err)
	}
	suffix, err := randomToken(2)
	if err != nil {
		return nil, fmt.Errorf("generating card number: %w", err)
	}

	return &MembershipCard{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		SubscriptionID: subscriptionID,
		CardNumber:     fmt.Sprintf("%s-%s", memberNumber, suffix),
		QRToken:        token,
		IssuedAt:       issuedAt,
	}, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
