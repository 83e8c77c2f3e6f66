package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/liguemed/membership-core/internal/usecase"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx, so the same
// repositories serve plain reads and transactional work.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories over one Queryer. Inside WithinTx the
// Queryer is the transaction, so every repository call shares its
// isolation and locks.
type Store struct {
	q Queryer
}

func NewStore(q Queryer) *Store {
	return &Store{q: q}
}

func (s *Store) Leads() usecase.LeadRepository                  { return &LeadRepository{q: s.q} }
func (s *Store) Attempts() usecase.PaymentAttemptRepository     { return &PaymentAttemptRepository{q: s.q} }
func (s *Store) Users() usecase.UserRepository                  { return &UserRepository{q: s.q} }
func (s *Store) Subscriptions() usecase.SubscriptionRepository  { return &SubscriptionRepository{q: s.q} }
func (s *Store) Cards() usecase.MembershipCardRepository        { return &MembershipCardRepository{q: s.q} }
func (s *Store) Plans() usecase.PlanRepository                  { return &PlanRepository{q: s.q} }
func (s *Store) Audit() usecase.AuditRepository                 { return &AuditRepository{q: s.q} }
func (s *Store) MemberNumbers() usecase.MemberNumberIssuer      { return &MemberNumberIssuer{q: s.q} }

// TxManager opens one database transaction per unit of work.
type TxManager struct {
	DB *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{DB: db}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, s usecase.Store) error) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(ctx, NewStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
