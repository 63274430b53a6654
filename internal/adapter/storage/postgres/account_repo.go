package postgres

import (
	"context"
	"errors"
	"fmt"

	"payout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, chat_id, username, available_balance, frozen_balance, registered_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.ChatID, &a.Username, &a.Available, &a.Frozen, &a.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, chat_id, username, available_balance, frozen_balance, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ChatID, a.Username, a.Available, a.Frozen, a.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByChatID fetches an account by its chat-platform identifier.
func (r *AccountRepo) GetByChatID(ctx context.Context, chatID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE chat_id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		return nil, fmt.Errorf("get account by chat id: %w", err)
	}
	return a, nil
}

// GetByIDForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// UpdateBalances writes both balances within a transaction.
func (r *AccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, available, frozen decimal.Decimal) error {
	query := `UPDATE accounts SET available_balance = $1, frozen_balance = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, available, frozen, id)
	if err != nil {
		return fmt.Errorf("update account balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// List returns all accounts ordered by registration time.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY registered_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.ChatID, &a.Username, &a.Available, &a.Frozen, &a.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
