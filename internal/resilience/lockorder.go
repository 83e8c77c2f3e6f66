package resilience

import (
	"context"
	"fmt"
	"sort"
)

// LockOrderVersion tags the declared acquisition sequence below. Bump it
// whenever the sequence changes; all service instances of one deployment
// must run the same version.
const LockOrderVersion = 1

// Table identifies an entity group touched by multi-entity transactions.
// The declaration order below IS the global lock-acquisition order: every
// transaction that touches more than one of these acquires them in this
// sequence, so circular waits cannot form.
type Table int

const (
	TableTenants Table = iota
	TableUsers
	TablePlans
	TableLeads
	TablePaymentAttempts
	TableMemberNumbers
	TableSubscriptions
	TableMembershipCards
	TableAuditEvents
)

func (t Table) String() string {
	switch t {
	case TableTenants:
		return "tenants"
	case TableUsers:
		return "users"
	case TablePlans:
		return "plans"
	case TableLeads:
		return "leads"
	case TablePaymentAttempts:
		return "payment_attempts"
	case TableMemberNumbers:
		return "member_numbers"
	case TableSubscriptions:
		return "subscriptions"
	case TableMembershipCards:
		return "membership_cards"
	case TableAuditEvents:
		return "audit_events"
	}
	return fmt.Sprintf("table(%d)", int(t))
}

type step struct {
	table Table
	name  string
	fn    func(context.Context) error
}

// TxPlan collects the sub-operations of one transaction and executes them
// sorted by the declared table order. Steps against the same table keep
// their insertion order.
type TxPlan struct {
	steps []step
}

func NewTxPlan() *TxPlan {
	return &TxPlan{}
}

func (p *TxPlan) Add(table Table, name string, fn func(context.Context) error) {
	p.steps = append(p.steps, step{table: table, name: name, fn: fn})
}

func (p *TxPlan) Execute(ctx context.Context) error {
	sort.SliceStable(p.steps, func(i, j int) bool {
		return p.steps[i].table < p.steps[j].table
	})
	for _, s := range p.steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s (%s): %w", s.name, s.table, err)
		}
	}
	return nil
}
