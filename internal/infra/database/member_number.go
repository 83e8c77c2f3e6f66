package database

import (
	"context"
	"fmt"
	"time"
)

// MemberNumberIssuer reserves human-readable member numbers from a
// per-tenant counter row. The upsert takes a row lock on the counter, so
// concurrent conversions inside their own transactions serialize here and
// can neither collide nor leave gaps on rollback-free commits.
type MemberNumberIssuer struct {
	q Queryer
}

func (i *MemberNumberIssuer) Next(ctx context.Context, tenantID string, joinedAt time.Time) (string, error) {
	query := `
		INSERT INTO member_number_counters (tenant_id, last_value)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id)
		DO UPDATE SET last_value = member_number_counters.last_value + 1
		RETURNING last_value
	`
	var value int64
	if err := i.q.QueryRowContext(ctx, query, tenantID).Scan(&value); err != nil {
		return "", fmt.Errorf("reserving member number: %w", err)
	}

	return fmt.Sprintf("LM-%d-%06d", joinedAt.Year(), value), nil
}
