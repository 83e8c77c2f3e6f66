package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liguemed/membership-core/internal/entity"
)

type AuditRepository struct {
	q Queryer
}

// Record appends one immutable audit row. There is deliberately no
// update or delete path for audit_events.
func (r *AuditRepository) Record(ctx context.Context, event *entity.AuditEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encoding audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, tenant_id, actor_id, actor_role, action,
			entity_type, entity_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.q.ExecContext(ctx, query,
		event.ID, event.TenantID, event.ActorID, event.ActorRole,
		event.Action, event.EntityType, event.EntityID, metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}
