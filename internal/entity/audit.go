package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionVerifyPaymentApprove   = "VERIFY_PAYMENT_APPROVE"
	ActionVerifyPaymentReject    = "VERIFY_PAYMENT_REJECT"
	ActionVerifyPaymentNeedsInfo = "VERIFY_PAYMENT_NEEDS_INFO"
	ActionResubmitPayment        = "RESUBMIT_PAYMENT"
	ActionConvertLead            = "CONVERT_LEAD"
	ActionExpireLead             = "EXPIRE_LEAD"

	EntityTypePaymentAttempt = "payment_attempt"
	EntityTypeLead           = "lead"
)

// AuditEvent is an append-only record of a workflow decision. Rows are
// immutable once written.
type AuditEvent struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewAuditEvent(tenantID, actorID, actorRole, action, entityType, entityID string, metadata map[string]any) *AuditEvent {
	return &AuditEvent{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}
