package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/usecase"
)

// LeadExpiryWorker terminally transitions stale leads to expired. Leads
// with an open payment attempt are never touched; the verification
// workflow owns those.
type LeadExpiryWorker struct {
	tx           usecase.TxManager
	maxAge       time.Duration
	tickInterval time.Duration
	batchSize    int
	log          *zap.SugaredLogger
}

func NewLeadExpiryWorker(tx usecase.TxManager, maxAge time.Duration, log *zap.SugaredLogger) *LeadExpiryWorker {
	return &LeadExpiryWorker{
		tx:           tx,
		maxAge:       maxAge,
		tickInterval: time.Hour,
		batchSize:    100,
		log:          log,
	}
}

func (w *LeadExpiryWorker) Start(ctx context.Context) {
	w.log.Infow("lead expiry worker started", "max_age", w.maxAge)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Infow("lead expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *LeadExpiryWorker) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.maxAge)
	expirable := []entity.LeadStatus{entity.LeadStatusNew, entity.LeadStatusContacted}

	expired := 0
	err := w.tx.WithinTx(ctx, func(ctx context.Context, s usecase.Store) error {
		leads, err := s.Leads().FindStale(ctx, expirable, cutoff, w.batchSize)
		if err != nil {
			return err
		}
		for _, lead := range leads {
			if err := s.Leads().SetStatus(ctx, lead.TenantID, lead.ID, entity.LeadStatusExpired); err != nil {
				return err
			}
			event := entity.NewAuditEvent(lead.TenantID, "system", "system",
				entity.ActionExpireLead, entity.EntityTypeLead, lead.ID,
				map[string]any{"previous_status": string(lead.Status)})
			if err := s.Audit().Record(ctx, event); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		w.log.Errorw("lead expiry sweep failed", "err", err)
		return
	}
	if expired > 0 {
		w.log.Infow("stale leads expired", "count", expired)
	}
}
