package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// In-memory fakes for service unit tests. Locking fidelity is not modeled;
// tests that need real FOR UPDATE semantics live in tests/integration.

type fakeAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *fakeAccountRepo) put(a *domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
}

func (r *fakeAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.put(a)
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) GetByChatID(ctx context.Context, chatID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.ChatID == chatID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, available, frozen decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.Available = available
	a.Frozen = frozen
	return nil
}

func (r *fakeAccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

type fakeRequestRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.PaymentRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*domain.PaymentRequest)}
}

func (r *fakeRequestRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeRequestRepo) Update(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return fmt.Errorf("request not found")
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PaymentRequest
	for _, req := range r.requests {
		if req.AccountID == accountID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) List(ctx context.Context, filter ports.RequestFilter) ([]domain.PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PaymentRequest
	for _, req := range r.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.AccountID != nil && req.AccountID != *filter.AccountID {
			continue
		}
		if filter.Urgency != nil && req.Urgency != *filter.Urgency {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

type fakeDepositRepo struct {
	mu       sync.RWMutex
	deposits map[uuid.UUID]*domain.Deposit
}

func newFakeDepositRepo() *fakeDepositRepo {
	return &fakeDepositRepo{deposits: make(map[uuid.UUID]*domain.Deposit)}
}

func (r *fakeDepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deposits[d.ID] = &cp
	return nil
}

func (r *fakeDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deposits[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deposit, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeDepositRepo) Update(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deposits[d.ID]; !ok {
		return fmt.Errorf("deposit not found")
	}
	cp := *d
	r.deposits[d.ID] = &cp
	return nil
}

func (r *fakeDepositRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Deposit
	for _, d := range r.deposits {
		if d.AccountID == accountID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDepositRepo) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Deposit
	for _, d := range r.deposits {
		if d.Status == domain.DepositStatusPending {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDepositRepo) AcquireMatcherLock(ctx context.Context, tx pgx.Tx) error {
	return nil
}

func (r *fakeDepositRepo) ActivePayableAmounts(ctx context.Context, tx pgx.Tx) ([]decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []decimal.Decimal
	for _, d := range r.deposits {
		if d.Status == domain.DepositStatusPending {
			out = append(out, d.PayableAmount)
		}
	}
	return out, nil
}

func (r *fakeDepositRepo) FindPendingByPayableAmount(ctx context.Context, tx pgx.Tx, amount decimal.Decimal, now time.Time) (*domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var candidates []*domain.Deposit
	for _, d := range r.deposits {
		if d.IsActive(now) && d.PayableAmount.Equal(amount) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (r *fakeDepositRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.deposits {
		if d.Status == domain.DepositStatusPending && !now.Before(d.ExpiresAt) {
			d.Status = domain.DepositStatusExpired
			n++
		}
	}
	return n, nil
}

type fakeNotificationRepo struct {
	mu            sync.RWMutex
	notifications []*domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r *fakeNotificationRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.AccountID == accountID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, notif := range r.notifications {
		if notif.AccountID == accountID && !notif.Read {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification not found")
}

type fakeOperatorRepo struct {
	mu        sync.RWMutex
	operators map[uuid.UUID]*domain.Operator
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{operators: make(map[uuid.UUID]*domain.Operator)}
}

func (r *fakeOperatorRepo) Create(ctx context.Context, o *domain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.operators[o.ID] = &cp
	return nil
}

func (r *fakeOperatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.operators[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOperatorRepo) GetByLogin(ctx context.Context, login string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.operators {
		if o.Login == login {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOperatorRepo) List(ctx context.Context) ([]domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Operator, 0, len(r.operators))
	for _, o := range r.operators {
		out = append(out, *o)
	}
	return out, nil
}

func (r *fakeOperatorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.operators[id]
	if !ok {
		return fmt.Errorf("operator not found")
	}
	o.Active = active
	return nil
}

func (r *fakeOperatorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.operators, id)
	return nil
}

// fakeTransactor hands out no-op transactions.
type fakeTransactor struct{}

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *noopTx) Conn() *pgx.Conn                                               { return nil }

// fakeRateSource returns a fixed rate and counts calls.
type fakeRateSource struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *fakeRateSource) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return decimal.Decimal{}, s.err
	}
	return s.rate, nil
}

// fakeNotifier records delivered messages.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, chatID string, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
