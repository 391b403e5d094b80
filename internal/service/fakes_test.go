package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// memStore is an in-memory backend whose transactions are serialized and roll back by
// restoring a snapshot of the settlement collections.
type memStore struct {
	mu          sync.Mutex
	plans       map[int64]domain.Plan
	members     map[int64]domain.Member
	memberships map[int64]domain.Membership
	payments    map[int64]domain.Payment
	receipts    map[int64]domain.Receipt
	counters    map[string]int64

	txMu sync.Mutex

	failPayment   error
	failReceipt   error
	failOpen      error
	failPlanRead  error
	receiptIssues int
}

func newMemStore() *memStore {
	return &memStore{
		plans:       map[int64]domain.Plan{},
		members:     map[int64]domain.Member{},
		memberships: map[int64]domain.Membership{},
		payments:    map[int64]domain.Payment{},
		receipts:    map[int64]domain.Receipt{},
		counters:    map[string]int64{},
	}
}

func (s *memStore) addPlan(p domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *memStore) addMember(m domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

func (s *memStore) activeMemberships(memberID int64) []domain.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []domain.Membership
	for _, m := range s.memberships {
		if m.MemberID == memberID && m.Status == domain.MembershipStatusActive {
			active = append(active, m)
		}
	}
	return active
}

func (s *memStore) counts() (memberships, payments, receipts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memberships), len(s.payments), len(s.receipts)
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// WithinTransaction implements domain.TransactionRunner
func (s *memStore) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	memberships, payments, receipts := copyMap(s.memberships), copyMap(s.payments), copyMap(s.receipts)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.memberships, s.payments, s.receipts = memberships, payments, receipts
		s.mu.Unlock()
		return err
	}
	return nil
}

// Next implements domain.SequenceRepository
func (s *memStore) Next(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

type memPlans struct{ *memStore }

func (r memPlans) Create(ctx context.Context, p *domain.Plan) error {
	r.addPlan(*p)
	return nil
}

func (r memPlans) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPlanRead != nil {
		return nil, r.failPlanRead
	}
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &p, nil
}

func (r memPlans) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	return nil, errors.New("not used")
}

func (r memPlans) Update(ctx context.Context, p *domain.Plan) error {
	r.addPlan(*p)
	return nil
}

func (r memPlans) SetActive(ctx context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.plans[id]
	p.IsActive = active
	r.plans[id] = p
	return nil
}

type memMembers struct{ *memStore }

func (r memMembers) Create(ctx context.Context, m *domain.Member) error {
	r.addMember(*m)
	return nil
}

func (r memMembers) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return &m, nil
}

func (r memMembers) List(ctx context.Context) ([]*domain.Member, error) {
	return nil, errors.New("not used")
}

type memMemberships struct{ *memStore }

func (r memMemberships) Open(ctx context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOpen != nil {
		return r.failOpen
	}
	for id, existing := range r.memberships {
		if existing.MemberID == m.MemberID && existing.Status == domain.MembershipStatusActive {
			existing.Status = domain.MembershipStatusInactive
			r.memberships[id] = existing
		}
	}
	m.Status = domain.MembershipStatusActive
	r.memberships[m.ID] = *m
	return nil
}

func (r memMemberships) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (r memMemberships) GetActiveByMemberID(ctx context.Context, memberID int64) (*domain.Membership, error) {
	active := r.activeMemberships(memberID)
	if len(active) == 0 {
		return nil, domain.ErrNotFound
	}
	return &active[0], nil
}

func (r memMemberships) ListByMemberID(ctx context.Context, memberID int64) ([]*domain.Membership, error) {
	return nil, errors.New("not used")
}

type memPayments struct{ *memStore }

func (r memPayments) Record(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPayment != nil {
		return r.failPayment
	}
	r.payments[p.ID] = *p
	return nil
}

func (r memPayments) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r memPayments) List(ctx context.Context, limit int64) ([]*domain.Payment, error) {
	return nil, errors.New("not used")
}

type memReceipts struct{ *memStore }

func (r memReceipts) Issue(ctx context.Context, receipt *domain.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receiptIssues++
	if r.failReceipt != nil {
		return r.failReceipt
	}
	for _, existing := range r.receipts {
		if existing.Number == receipt.Number {
			return errors.New("duplicate receipt number")
		}
		if receipt.IdempotencyKey != "" && existing.IdempotencyKey == receipt.IdempotencyKey {
			return domain.ErrDuplicateIdempotencyKey
		}
	}
	r.receipts[receipt.ID] = *receipt
	return nil
}

func (r memReceipts) find(match func(domain.Receipt) bool) (*domain.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, receipt := range r.receipts {
		if match(receipt) {
			found := receipt
			return &found, nil
		}
	}
	return nil, domain.ErrReceiptNotFound
}

func (r memReceipts) GetByID(ctx context.Context, id int64) (*domain.Receipt, error) {
	return r.find(func(x domain.Receipt) bool { return x.ID == id })
}

func (r memReceipts) GetByPaymentID(ctx context.Context, paymentID int64) (*domain.Receipt, error) {
	return r.find(func(x domain.Receipt) bool { return x.PaymentID == paymentID })
}

func (r memReceipts) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Receipt, error) {
	return r.find(func(x domain.Receipt) bool { return key != "" && x.IdempotencyKey == key })
}

// memLocker is a per-member mutex; failWith short-circuits Acquire.
type memLocker struct {
	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	failWith error
}

func newMemLocker() *memLocker {
	return &memLocker{locks: map[int64]*sync.Mutex{}}
}

func (l *memLocker) Acquire(ctx context.Context, memberID int64) (func(), error) {
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.mu.Lock()
	m, ok := l.locks[memberID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[memberID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// signallingLocker reports each Acquire call before waiting on the member lock.
type signallingLocker struct {
	*memLocker
	entered chan int64
}

func (l signallingLocker) Acquire(ctx context.Context, memberID int64) (func(), error) {
	l.entered <- memberID
	return l.memLocker.Acquire(ctx, memberID)
}

// heldLocker stands in for a caller that already owns the member lock.
type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, memberID int64) (func(), error) {
	return func() {}, nil
}

// steppedClock is a settable clock shared between goroutines.
type steppedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingArchive struct {
	archived chan *domain.Receipt
}

func (a *recordingArchive) Archive(ctx context.Context, receipt *domain.Receipt) (string, error) {
	a.archived <- receipt
	return "s3://receipts/" + receipt.Number, nil
}
