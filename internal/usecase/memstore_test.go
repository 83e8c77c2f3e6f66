package usecase_test

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/usecase"
)

// memStore is an in-memory usecase.Store. memTx gives it real
// transaction semantics by running every unit of work against a deep
// copy and swapping it in only on success.
type memStore struct {
	leads    map[string]*entity.Lead
	attempts map[string]*entity.PaymentAttempt
	users    map[string]*entity.User
	subs     map[string]*entity.Subscription
	cards    map[string]*entity.MembershipCard
	plans    map[string]*entity.Plan
	events   []*entity.AuditEvent
	counter  int64
}

func newMemStore() *memStore {
	return &memStore{
		leads:    map[string]*entity.Lead{},
		attempts: map[string]*entity.PaymentAttempt{},
		users:    map[string]*entity.User{},
		subs:     map[string]*entity.Subscription{},
		cards:    map[string]*entity.MembershipCard{},
		plans: map[string]*entity.Plan{
			entity.DefaultPlanID: {ID: entity.DefaultPlanID, Name: "Standard", PriceCents: 12000, Currency: "EUR", Interval: "YEARLY"},
		},
	}
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range m.leads {
		lead := *v
		c.leads[k] = &lead
	}
	for k, v := range m.attempts {
		attempt := *v
		c.attempts[k] = &attempt
	}
	for k, v := range m.users {
		user := *v
		c.users[k] = &user
	}
	for k, v := range m.subs {
		sub := *v
		c.subs[k] = &sub
	}
	for k, v := range m.cards {
		card := *v
		c.cards[k] = &card
	}
	for k, v := range m.plans {
		plan := *v
		c.plans[k] = &plan
	}
	c.events = append([]*entity.AuditEvent{}, m.events...)
	c.counter = m.counter
	return c
}

func (m *memStore) Leads() usecase.LeadRepository                 { return &memLeads{s: m} }
func (m *memStore) Attempts() usecase.PaymentAttemptRepository    { return &memAttempts{s: m} }
func (m *memStore) Users() usecase.UserRepository                 { return &memUsers{s: m} }
func (m *memStore) Subscriptions() usecase.SubscriptionRepository { return &memSubs{s: m} }
func (m *memStore) Cards() usecase.MembershipCardRepository       { return &memCards{s: m} }
func (m *memStore) Plans() usecase.PlanRepository                 { return &memPlans{s: m} }
func (m *memStore) Audit() usecase.AuditRepository                { return &memAudit{s: m} }
func (m *memStore) MemberNumbers() usecase.MemberNumberIssuer     { return &memNumbers{s: m} }

type memLeads struct{ s *memStore }

func (r *memLeads) Create(_ context.Context, lead *entity.Lead) error {
	cp := *lead
	r.s.leads[lead.ID] = &cp
	return nil
}

func (r *memLeads) FindByID(_ context.Context, tenantID, id string) (*entity.Lead, error) {
	lead, ok := r.s.leads[id]
	if !ok || lead.TenantID != tenantID {
		return nil, &usecase.NotFoundError{Resource: "lead", ID: id}
	}
	cp := *lead
	return &cp, nil
}

func (r *memLeads) FindByIDForUpdate(ctx context.Context, tenantID, id string) (*entity.Lead, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memLeads) SetStatus(_ context.Context, tenantID, id string, status entity.LeadStatus) error {
	lead, ok := r.s.leads[id]
	if !ok || lead.TenantID != tenantID {
		return &usecase.NotFoundError{Resource: "lead", ID: id}
	}
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memLeads) MarkConverted(_ context.Context, tenantID, id, userID string) error {
	lead, ok := r.s.leads[id]
	if !ok || lead.TenantID != tenantID {
		return &usecase.NotFoundError{Resource: "lead", ID: id}
	}
	if lead.ConvertedUserID != nil {
		return &usecase.ConflictError{Message: "lead was already converted", CurrentStatus: string(entity.LeadStatusConverted)}
	}
	lead.Status = entity.LeadStatusConverted
	lead.ConvertedUserID = &userID
	return nil
}

func (r *memLeads) FindStale(_ context.Context, statuses []entity.LeadStatus, cutoff time.Time, limit int) ([]entity.Lead, error) {
	var out []entity.Lead
	for _, lead := range r.s.leads {
		if len(out) >= limit {
			break
		}
		if !lead.UpdatedAt.Before(cutoff) {
			continue
		}
		for _, st := range statuses {
			if lead.Status == st {
				out = append(out, *lead)
				break
			}
		}
	}
	return out, nil
}

type memAttempts struct{ s *memStore }

func (r *memAttempts) Create(_ context.Context, attempt *entity.PaymentAttempt) error {
	cp := *attempt
	r.s.attempts[attempt.ID] = &cp
	return nil
}

func (r *memAttempts) FindByID(_ context.Context, tenantID, id string) (*entity.PaymentAttempt, error) {
	attempt, ok := r.s.attempts[id]
	if !ok || attempt.TenantID != tenantID {
		return nil, &usecase.NotFoundError{Resource: "payment attempt", ID: id}
	}
	cp := *attempt
	return &cp, nil
}

func (r *memAttempts) FindByIDForUpdate(ctx context.Context, tenantID, id string) (*entity.PaymentAttempt, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memAttempts) ApplyDecision(_ context.Context, attempt *entity.PaymentAttempt) error {
	stored, ok := r.s.attempts[attempt.ID]
	if !ok || stored.TenantID != attempt.TenantID {
		return &usecase.NotFoundError{Resource: "payment attempt", ID: attempt.ID}
	}
	stored.Status = attempt.Status
	stored.IsResubmission = attempt.IsResubmission
	stored.VerifiedBy = attempt.VerifiedBy
	stored.VerifiedAt = attempt.VerifiedAt
	if attempt.VerificationNote != nil {
		stored.VerificationNote = attempt.VerificationNote
	}
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memAttempts) MarkResubmitted(_ context.Context, attempt *entity.PaymentAttempt) error {
	stored, ok := r.s.attempts[attempt.ID]
	if !ok || stored.TenantID != attempt.TenantID {
		return &usecase.NotFoundError{Resource: "payment attempt", ID: attempt.ID}
	}
	stored.Status = attempt.Status
	stored.IsResubmission = true
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, user *entity.User) error {
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *memUsers) FindByID(_ context.Context, tenantID, id string) (*entity.User, error) {
	user, ok := r.s.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, &usecase.NotFoundError{Resource: "user", ID: id}
	}
	cp := *user
	return &cp, nil
}

func (r *memUsers) SetMemberNumber(_ context.Context, tenantID, id, memberNumber string) error {
	user, ok := r.s.users[id]
	if !ok || user.TenantID != tenantID {
		return &usecase.NotFoundError{Resource: "user", ID: id}
	}
	user.MemberNumber = &memberNumber
	return nil
}

type memSubs struct{ s *memStore }

func (r *memSubs) Create(_ context.Context, sub *entity.Subscription) error {
	cp := *sub
	r.s.subs[sub.ID] = &cp
	return nil
}

type memCards struct{ s *memStore }

func (r *memCards) Create(_ context.Context, card *entity.MembershipCard) error {
	cp := *card
	r.s.cards[card.ID] = &cp
	return nil
}

type memPlans struct{ s *memStore }

func (r *memPlans) FindByID(_ context.Context, id string) (*entity.Plan, error) {
	plan, ok := r.s.plans[id]
	if !ok {
		return nil, &usecase.NotFoundError{Resource: "plan", ID: id}
	}
	cp := *plan
	return &cp, nil
}

type memAudit struct{ s *memStore }

func (r *memAudit) Record(_ context.Context, event *entity.AuditEvent) error {
	r.s.events = append(r.s.events, event)
	return nil
}

type memNumbers struct{ s *memStore }

func (r *memNumbers) Next(_ context.Context, tenantID string, joinedAt time.Time) (string, error) {
	r.s.counter++
	return fmt.Sprintf("LM-%d-%06d", joinedAt.Year(), r.s.counter), nil
}

// memTx commits the cloned store only when fn succeeds, mirroring a real
// transaction's all-or-nothing behavior.
type memTx struct {
	store *memStore
}

func (m *memTx) WithinTx(_ context.Context, fn func(ctx context.Context, s usecase.Store) error) error {
	work := m.store.clone()
	if err := fn(context.Background(), work); err != nil {
		return err
	}
	*m.store = *work
	return nil
}

// flakyTx fails the first n transactions with the given error before
// delegating, for exercising the retry wrapper.
type flakyTx struct {
	inner     usecase.TxManager
	failures  int
	failErr   error
	attempted int
}

func (f *flakyTx) WithinTx(ctx context.Context, fn func(ctx context.Context, s usecase.Store) error) error {
	f.attempted++
	if f.attempted <= f.failures {
		return f.failErr
	}
	return f.inner.WithinTx(ctx, fn)
}

// countingTx tracks how many transactions were opened.
type countingTx struct {
	inner  usecase.TxManager
	opened int
}

func (c *countingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, s usecase.Store) error) error {
	c.opened++
	return c.inner.WithinTx(ctx, fn)
}

// mockNotifier is a testify mock for the notification dispatcher.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) DispatchDecision(ctx context.Context, notice usecase.DecisionNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}
