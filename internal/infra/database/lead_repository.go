package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/usecase"
)

type LeadRepository struct {
	q Queryer
}

const leadColumns = `
	id, tenant_id, branch_id, agent_id, first_name, last_name, email,
	status, converted_user_id, created_at, updated_at`

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (
			id, tenant_id, branch_id, agent_id, first_name, last_name,
			email, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		lead.ID, lead.TenantID, lead.BranchID, lead.AgentID,
		lead.FirstName, lead.LastName, lead.Email,
		lead.Status, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 AND id = $2`
	return r.scanOne(r.q.QueryRowContext(ctx, query, tenantID, id), id)
}

func (r *LeadRepository) FindByIDForUpdate(ctx context.Context, tenantID, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, tenantID, id), id)
}

func (r *LeadRepository) SetStatus(ctx context.Context, tenantID, id string, status entity.LeadStatus) error {
	query := `UPDATE leads SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`
	res, err := r.q.ExecContext(ctx, query, status, tenantID, id)
	if err != nil {
		return fmt.Errorf("updating lead status: %w", err)
	}
	return requireRow(res, "lead", id)
}

// MarkConverted is the irreversible terminal transition: it only fires
// while converted_user_id is still null, so a raced conversion updates
// zero rows and surfaces as a conflict.
func (r *LeadRepository) MarkConverted(ctx context.Context, tenantID, id, userID string) error {
	query := `
		UPDATE leads
		SET status = $1, converted_user_id = $2, updated_at = NOW()
		WHERE tenant_id = $3 AND id = $4 AND converted_user_id IS NULL
	`
	res, err := r.q.ExecContext(ctx, query, entity.LeadStatusConverted, userID, tenantID, id)
	if err != nil {
		return fmt.Errorf("marking lead converted: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &usecase.ConflictError{
			Message:       "lead was already converted",
			CurrentStatus: string(entity.LeadStatusConverted),
		}
	}
	return nil
}

func (r *LeadRepository) FindStale(ctx context.Context, statuses []entity.LeadStatus, cutoff time.Time, limit int) ([]entity.Lead, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}
	query := `
		SELECT ` + leadColumns + `
		FROM leads l
		WHERE l.status = ANY($1)
		  AND l.updated_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM payment_attempts a
			WHERE a.lead_id = l.id AND a.status IN ('pending', 'needs_info')
		  )
		ORDER BY l.updated_at
		LIMIT $3
	`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(raw), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stale leads: %w", err)
	}
	defer rows.Close()

	var leads []entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *LeadRepository) scanOne(row *sql.Row, id string) (*entity.Lead, error) {
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &usecase.NotFoundError{Resource: "lead", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning lead: %w", err)
	}
	return lead, nil
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		lead      entity.Lead
		converted sql.NullString
	)
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.BranchID, &lead.AgentID,
		&lead.FirstName, &lead.LastName, &lead.Email,
		&lead.Status, &converted, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if converted.Valid {
		lead.ConvertedUserID = &converted.String
	}
	return &lead, nil
}

func requireRow(res sql.Result, resource, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &usecase.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
