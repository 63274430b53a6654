package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// matcherLockKey is the pg_advisory_xact_lock key serializing payable-amount
// assignment. Arbitrary constant, shared by every matcher transaction.
const matcherLockKey = 815001

// DepositRepo implements ports.DepositRepository.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

const depositColumns = `id, account_id, requested_amount, payable_amount, status, wallet_address, tx_hash, confirmed_by, confirmed_at, expires_at, created_at`

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	d := &domain.Deposit{}
	err := row.Scan(
		&d.ID, &d.AccountID, &d.RequestedAmount, &d.PayableAmount, &d.Status,
		&d.WalletAddress, &d.TxHash, &d.ConfirmedBy, &d.ConfirmedAt, &d.ExpiresAt, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// Create inserts a new deposit within a transaction. The partial unique
// index on (payable_amount) WHERE status = 'pending' backstops the matcher:
// a duplicate assignment fails here instead of corrupting matching.
func (r *DepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	query := `INSERT INTO deposits
		(id, account_id, requested_amount, payable_amount, status, wallet_address, tx_hash, confirmed_by, confirmed_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		d.ID, d.AccountID, d.RequestedAmount, d.PayableAmount, d.Status,
		d.WalletAddress, d.TxHash, d.ConfirmedBy, d.ConfirmedAt, d.ExpiresAt, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

// GetByID fetches a deposit by its UUID (without locking).
func (r *DepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	d, err := scanDeposit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	return d, nil
}

// GetByIDForUpdate fetches a deposit with pessimistic locking.
// This MUST be called within a transaction.
func (r *DepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1 FOR UPDATE`

	d, err := scanDeposit(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get deposit for update: %w", err)
	}
	return d, nil
}

// Update writes the deposit's mutable fields within a transaction.
func (r *DepositRepo) Update(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	query := `UPDATE deposits
		SET status = $1, tx_hash = $2, confirmed_by = $3, confirmed_at = $4, expires_at = $5
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		d.Status, d.TxHash, d.ConfirmedBy, d.ConfirmedAt, d.ExpiresAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deposit not found: %s", d.ID)
	}
	return nil
}

// ListByAccount returns the account's deposits, newest first.
func (r *DepositRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	return collectDeposits(rows)
}

// ListPending returns all pending deposits, oldest first.
func (r *DepositRepo) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE status = 'pending' ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending deposits: %w", err)
	}
	defer rows.Close()

	return collectDeposits(rows)
}

// AcquireMatcherLock takes the transaction-scoped advisory lock that
// serializes concurrent payable-amount assignment.
func (r *DepositRepo) AcquireMatcherLock(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, matcherLockKey)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// ActivePayableAmounts returns the payable amounts of all pending
// deposits. Rows past their deadline still hold their slot until the
// expiration sweep runs, because uq_deposits_pending_payable covers every
// pending row regardless of expiry.
func (r *DepositRepo) ActivePayableAmounts(ctx context.Context, tx pgx.Tx) ([]decimal.Decimal, error) {
	query := `SELECT payable_amount FROM deposits WHERE status = 'pending'`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active payable amounts: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var a decimal.Decimal
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan payable amount: %w", err)
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

// FindPendingByPayableAmount resolves an observed transfer amount to the
// oldest matching pending, unexpired deposit, locking it.
func (r *DepositRepo) FindPendingByPayableAmount(ctx context.Context, tx pgx.Tx, amount decimal.Decimal, now time.Time) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits
		WHERE status = 'pending' AND payable_amount = $1 AND expires_at > $2
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE`

	d, err := scanDeposit(tx.QueryRow(ctx, query, amount, now))
	if err != nil {
		return nil, fmt.Errorf("find deposit by payable amount: %w", err)
	}
	return d, nil
}

// ExpireOverdue flips pending deposits past their deadline to expired.
func (r *DepositRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE deposits SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire deposits: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectDeposits(rows pgx.Rows) ([]domain.Deposit, error) {
	var deposits []domain.Deposit
	for rows.Next() {
		var d domain.Deposit
		err := rows.Scan(
			&d.ID, &d.AccountID, &d.RequestedAmount, &d.PayableAmount, &d.Status,
			&d.WalletAddress, &d.TxHash, &d.ConfirmedBy, &d.ConfirmedAt, &d.ExpiresAt, &d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}
