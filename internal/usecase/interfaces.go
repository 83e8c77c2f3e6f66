package usecase

import (
	"context"
	"time"

	"github.com/liguemed/membership-core/internal/entity"
)

// Actor is the authenticated caller, supplied by the external session
// provider. The workflows trust it but re-scope every query by TenantID.
type Actor struct {
	ID       string
	Role     string
	TenantID string
}

// Repository methods run against whatever transaction the enclosing
// Store is bound to. Absence is reported as *NotFoundError at this
// boundary so callers never see partial rows.

type LeadRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	FindByID(ctx context.Context, tenantID, id string) (*entity.Lead, error)
	// FindByIDForUpdate locks the lead row for the rest of the
	// transaction (SELECT ... FOR UPDATE).
	FindByIDForUpdate(ctx context.Context, tenantID, id string) (*entity.Lead, error)
	SetStatus(ctx context.Context, tenantID, id string, status entity.LeadStatus) error
	MarkConverted(ctx context.Context, tenantID, id, userID string) error
	// FindStale returns non-terminal leads in the given statuses older
	// than cutoff that have no open payment attempt.
	FindStale(ctx context.Context, statuses []entity.LeadStatus, cutoff time.Time, limit int) ([]entity.Lead, error)
}

type PaymentAttemptRepository interface {
	Create(ctx context.Context, attempt *entity.PaymentAttempt) error
	FindByID(ctx context.Context, tenantID, id string) (*entity.PaymentAttempt, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id string) (*entity.PaymentAttempt, error)
	// ApplyDecision persists status, verification stamp and the
	// resubmission flag after a verification decision.
	ApplyDecision(ctx context.Context, attempt *entity.PaymentAttempt) error
	// MarkResubmitted persists the pending + is_resubmission transition.
	MarkResubmitted(ctx context.Context, attempt *entity.PaymentAttempt) error
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, tenantID, id string) (*entity.User, error)
	SetMemberNumber(ctx context.Context, tenantID, id, memberNumber string) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
}

type MembershipCardRepository interface {
	Create(ctx context.Context, card *entity.MembershipCard) error
}

type PlanRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Plan, error)
}

type AuditRepository interface {
	Record(ctx context.Context, event *entity.AuditEvent) error
}

// MemberNumberIssuer reserves the next tenant-scoped member number inside
// the current transaction, so concurrent conversions cannot collide.
type MemberNumberIssuer interface {
	Next(ctx context.Context, tenantID string, joinedAt time.Time) (string, error)
}

// Store bundles the repositories bound to one transaction (or to the
// bare connection for single reads).
type Store interface {
	Leads() LeadRepository
	Attempts() PaymentAttemptRepository
	Users() UserRepository
	Subscriptions() SubscriptionRepository
	Cards() MembershipCardRepository
	Plans() PlanRepository
	Audit() AuditRepository
	MemberNumbers() MemberNumberIssuer
}

// TxManager runs fn inside one database transaction. fn may be
// re-executed from scratch by the retry wrapper, so everything inside
// must be safe to re-run.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// DecisionNotice is the fire-and-forget message sent to the owning agent
// after a reject or needs_info decision.
type DecisionNotice struct {
	AgentID     string `json:"agent_id"`
	Email       string `json:"email"`
	LeadName    string `json:"lead_name"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Note        string `json:"note"`
	Link        string `json:"link"`
}

// NotificationDispatcher hands the notice to the background delivery
// pipeline. Failures are logged by the caller and never fail the
// decision.
type NotificationDispatcher interface {
	DispatchDecision(ctx context.Context, notice DecisionNotice) error
}
