package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/usecase"
)

type UserRepository struct {
	q Queryer
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			id, tenant_id, branch_id, role, first_name, last_name,
			email, member_number, joined_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		user.ID, user.TenantID, user.BranchID, user.Role,
		user.FirstName, user.LastName, user.Email,
		user.MemberNumber, user.JoinedAt, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.User, error) {
	query := `
		SELECT id, tenant_id, branch_id, role, first_name, last_name,
			   email, member_number, joined_at, created_at
		FROM users
		WHERE tenant_id = $1 AND id = $2
	`
	var (
		user   entity.User
		number sql.NullString
	)
	err := r.q.QueryRowContext(ctx, query, tenantID, id).Scan(
		&user.ID, &user.TenantID, &user.BranchID, &user.Role,
		&user.FirstName, &user.LastName, &user.Email,
		&number, &user.JoinedAt, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &usecase.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if number.Valid {
		user.MemberNumber = &number.String
	}
	return &user, nil
}

func (r *UserRepository) SetMemberNumber(ctx context.Context, tenantID, id, memberNumber string) error {
	query := `UPDATE users SET member_number = $1 WHERE tenant_id = $2 AND id = $3`
	res, err := r.q.ExecContext(ctx, query, memberNumber, tenantID, id)
	if err != nil {
		return fmt.Errorf("setting member number: %w", err)
	}
	return requireRow(res, "user", id)
}

type SubscriptionRepository struct {
	q Queryer
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, tenant_id, user_id, plan_id, agent_id, branch_id,
			status, started_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		sub.ID, sub.TenantID, sub.UserID, sub.PlanID, sub.AgentID,
		sub.BranchID, sub.Status, sub.StartedAt, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

type MembershipCardRepository struct {
	q Queryer
}

func (r *MembershipCardRepository) Create(ctx context.Context, card *entity.MembershipCard) error {
	query := `
		INSERT INTO membership_cards (
			id, tenant_id, subscription_id, card_number, qr_token, issued_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.ExecContext(ctx, query,
		card.ID, card.TenantID, card.SubscriptionID,
		card.CardNumber, card.QRToken, card.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting membership card: %w", err)
	}
	return nil
}

type PlanRepository struct {
	q Queryer
}

func (r *PlanRepository) FindByID(ctx context.Context, id string) (*entity.Plan, error) {
	query := `SELECT id, name, price_cents, currency, interval FROM plans WHERE id = $1`
	var plan entity.Plan
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&plan.ID, &plan.Name, &plan.PriceCents, &plan.Currency, &plan.Interval,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &usecase.NotFoundError{Resource: "plan", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning plan: %w", err)
	}
	return &plan, nil
}
