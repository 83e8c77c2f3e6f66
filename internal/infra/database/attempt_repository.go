package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/usecase"
)

type PaymentAttemptRepository struct {
	q Queryer
}

const attemptColumns = `
	id, tenant_id, lead_id, method, amount_cents, currency, status,
	is_resubmission, verified_by, verified_at, verification_note,
	created_at, updated_at`

func (r *PaymentAttemptRepository) Create(ctx context.Context, attempt *entity.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, tenant_id, lead_id, method, amount_cents, currency,
			status, is_resubmission, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		attempt.ID, attempt.TenantID, attempt.LeadID, attempt.Method,
		attempt.AmountCents, attempt.Currency, attempt.Status,
		attempt.IsResubmission, attempt.CreatedAt, attempt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment attempt: %w", err)
	}
	return nil
}

func (r *PaymentAttemptRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE tenant_id = $1 AND id = $2`
	return r.scanOne(r.q.QueryRowContext(ctx, query, tenantID, id), id)
}

func (r *PaymentAttemptRepository) FindByIDForUpdate(ctx context.Context, tenantID, id string) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, tenantID, id), id)
}

func (r *PaymentAttemptRepository) ApplyDecision(ctx context.Context, attempt *entity.PaymentAttempt) error {
	query := `
		UPDATE payment_attempts
		SET status = $1,
			is_resubmission = $2,
			verified_by = $3,
			verified_at = $4,
			verification_note = COALESCE($5, verification_note),
			updated_at = NOW()
		WHERE tenant_id = $6 AND id = $7
	`
	res, err := r.q.ExecContext(ctx, query,
		attempt.Status, attempt.IsResubmission,
		attempt.VerifiedBy, attempt.VerifiedAt, attempt.VerificationNote,
		attempt.TenantID, attempt.ID,
	)
	if err != nil {
		return fmt.Errorf("applying verification decision: %w", err)
	}
	return requireRow(res, "payment attempt", attempt.ID)
}

func (r *PaymentAttemptRepository) MarkResubmitted(ctx context.Context, attempt *entity.PaymentAttempt) error {
	// The reviewer's note is deliberately left in place as guidance for
	// the agent; the next decision overwrites it.
	query := `
		UPDATE payment_attempts
		SET status = $1, is_resubmission = TRUE, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3
	`
	res, err := r.q.ExecContext(ctx, query, attempt.Status, attempt.TenantID, attempt.ID)
	if err != nil {
		return fmt.Errorf("marking attempt resubmitted: %w", err)
	}
	return requireRow(res, "payment attempt", attempt.ID)
}

func (r *PaymentAttemptRepository) scanOne(row *sql.Row, id string) (*entity.PaymentAttempt, error) {
	var (
		attempt    entity.PaymentAttempt
		verifiedBy sql.NullString
		verifiedAt sql.NullTime
		note       sql.NullString
	)
	err := row.Scan(
		&attempt.ID, &attempt.TenantID, &attempt.LeadID, &attempt.Method,
		&attempt.AmountCents, &attempt.Currency, &attempt.Status,
		&attempt.IsResubmission, &verifiedBy, &verifiedAt, &note,
		&attempt.CreatedAt, &attempt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &usecase.NotFoundError{Resource: "payment attempt", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning payment attempt: %w", err)
	}
	if verifiedBy.Valid {
		attempt.VerifiedBy = &verifiedBy.String
	}
	if verifiedAt.Valid {
		attempt.VerifiedAt = &verifiedAt.Time
	}
	if note.Valid {
		attempt.VerificationNote = &note.String
	}
	return &attempt, nil
}
