package integration

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

// In-memory repositories backing the end-to-end tests. The transactor hands
// out transactions that run finish hooks on commit or rollback, which is how
// the deposit matcher lock is released.

// --- Transactor ---

type memTransactor struct{}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

type memTx struct {
	mu     sync.Mutex
	once   sync.Once
	finish []func()
}

func (t *memTx) onFinish(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finish = append(t.finish, fn)
}

func (t *memTx) runFinish() {
	t.once.Do(func() {
		t.mu.Lock()
		fns := t.finish
		t.finish = nil
		t.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.runFinish(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.runFinish(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.ChatID == a.ChatID {
			return fmt.Errorf("chat_id already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByChatID(ctx context.Context, chatID string) (*domain.Account, error) {
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

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, available, frozen decimal.Decimal) error {
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

func (r *inMemoryAccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

// --- Payment Request Repo ---

type inMemoryRequestRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.PaymentRequest
}

func newInMemoryRequestRepo() *inMemoryRequestRepo {
	return &inMemoryRequestRepo{requests: make(map[uuid.UUID]*domain.PaymentRequest)}
}

func (r *inMemoryRequestRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *inMemoryRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryRequestRepo) Update(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return fmt.Errorf("payment request not found")
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryRequestRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PaymentRequest, 0)
	for _, req := range r.requests {
		if req.AccountID == accountID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryRequestRepo) List(ctx context.Context, filter ports.RequestFilter) ([]domain.PaymentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PaymentRequest, 0)
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
	sort.Slice(out, func(i, j int) bool {
		if out[i].Urgency != out[j].Urgency {
			return out[i].Urgency == domain.UrgencyUrgent
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- Deposit Repo ---

type inMemoryDepositRepo struct {
	mu        sync.RWMutex
	matcherMu sync.Mutex
	deposits  map[uuid.UUID]*domain.Deposit
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{deposits: make(map[uuid.UUID]*domain.Deposit)}
}

func (r *inMemoryDepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deposits[d.ID] = &cp
	return nil
}

func (r *inMemoryDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deposits[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deposit, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryDepositRepo) Update(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deposits[d.ID]; !ok {
		return fmt.Errorf("deposit not found")
	}
	cp := *d
	r.deposits[d.ID] = &cp
	return nil
}

func (r *inMemoryDepositRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Deposit, 0)
	for _, d := range r.deposits {
		if d.AccountID == accountID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryDepositRepo) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Deposit, 0)
	for _, d := range r.deposits {
		if d.Status == domain.DepositStatusPending {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// lockMatcher takes the matcher mutex and schedules its release for when
// the transaction finishes, mirroring pg_advisory_xact_lock.
func (r *inMemoryDepositRepo) lockMatcher(tx pgx.Tx) {
	r.matcherMu.Lock()
	if mt, ok := tx.(*memTx); ok {
		mt.onFinish(r.matcherMu.Unlock)
	} else {
		r.matcherMu.Unlock()
	}
}

func (r *inMemoryDepositRepo) AcquireMatcherLock(ctx context.Context, tx pgx.Tx) error {
	r.lockMatcher(tx)
	return nil
}

// ActivePayableAmounts includes expired-but-unswept pending rows: the
// postgres unique index keeps their slot occupied until the sweep flips
// their status.
func (r *inMemoryDepositRepo) ActivePayableAmounts(ctx context.Context, tx pgx.Tx) ([]decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]decimal.Decimal, 0)
	for _, d := range r.deposits {
		if d.Status == domain.DepositStatusPending {
			out = append(out, d.PayableAmount)
		}
	}
	return out, nil
}

// FindPendingByPayableAmount serializes through the matcher mutex so two
// concurrent confirmations cannot both claim the same pending deposit,
// standing in for the SELECT ... FOR UPDATE the real repo issues.
func (r *inMemoryDepositRepo) FindPendingByPayableAmount(ctx context.Context, tx pgx.Tx, amount decimal.Decimal, now time.Time) (*domain.Deposit, error) {
	r.lockMatcher(tx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var oldest *domain.Deposit
	for _, d := range r.deposits {
		if !d.IsActive(now) || !d.PayableAmount.Equal(amount) {
			continue
		}
		if oldest == nil || d.CreatedAt.Before(oldest.CreatedAt) {
			oldest = d
		}
	}
	if oldest == nil {
		return nil, nil
	}
	cp := *oldest
	return &cp, nil
}

func (r *inMemoryDepositRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
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

// --- Notification Repo ---

type inMemoryNotificationRepo struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*domain.Notification
}

func newInMemoryNotificationRepo() *inMemoryNotificationRepo {
	return &inMemoryNotificationRepo{notifications: make(map[uuid.UUID]*domain.Notification)}
}

func (r *inMemoryNotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *inMemoryNotificationRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Notification, 0)
	for _, n := range r.notifications {
		if n.AccountID == accountID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryNotificationRepo) CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error) {
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

func (r *inMemoryNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return fmt.Errorf("notification not found")
	}
	n.Read = true
	return nil
}

// --- Operator Repo ---

type inMemoryOperatorRepo struct {
	mu        sync.RWMutex
	operators map[uuid.UUID]*domain.Operator
}

func newInMemoryOperatorRepo() *inMemoryOperatorRepo {
	return &inMemoryOperatorRepo{operators: make(map[uuid.UUID]*domain.Operator)}
}

func (r *inMemoryOperatorRepo) Create(ctx context.Context, o *domain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.operators {
		if existing.Login == o.Login {
			return fmt.Errorf("login already exists")
		}
	}
	cp := *o
	r.operators[o.ID] = &cp
	return nil
}

func (r *inMemoryOperatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.operators[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOperatorRepo) GetByLogin(ctx context.Context, login string) (*domain.Operator, error) {
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

func (r *inMemoryOperatorRepo) List(ctx context.Context) ([]domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Operator, 0, len(r.operators))
	for _, o := range r.operators {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryOperatorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.operators[id]
	if !ok {
		return fmt.Errorf("operator not found")
	}
	o.Active = active
	return nil
}

func (r *inMemoryOperatorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.operators, id)
	return nil
}
