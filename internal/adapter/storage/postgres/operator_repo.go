package postgres

import (
	"context"
	"errors"
	"fmt"

	"payout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OperatorRepo implements ports.OperatorRepository.
type OperatorRepo struct {
	pool Pool
}

// NewOperatorRepo creates a new OperatorRepo.
func NewOperatorRepo(pool Pool) *OperatorRepo {
	return &OperatorRepo{pool: pool}
}

const operatorColumns = `id, login, password_hash, active, created_at`

func scanOperator(row pgx.Row) (*domain.Operator, error) {
	o := &domain.Operator{}
	err := row.Scan(&o.ID, &o.Login, &o.PasswordHash, &o.Active, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// Create inserts a new operator.
func (r *OperatorRepo) Create(ctx context.Context, o *domain.Operator) error {
	query := `INSERT INTO operators (id, login, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, o.ID, o.Login, o.PasswordHash, o.Active, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert operator: %w", err)
	}
	return nil
}

// GetByID fetches an operator by UUID.
func (r *OperatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`

	o, err := scanOperator(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get operator by id: %w", err)
	}
	return o, nil
}

// GetByLogin fetches an operator by login.
func (r *OperatorRepo) GetByLogin(ctx context.Context, login string) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE login = $1`

	o, err := scanOperator(r.pool.QueryRow(ctx, query, login))
	if err != nil {
		return nil, fmt.Errorf("get operator by login: %w", err)
	}
	return o, nil
}

// List returns all operators ordered by creation time.
func (r *OperatorRepo) List(ctx context.Context) ([]domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var operators []domain.Operator
	for rows.Next() {
		var o domain.Operator
		if err := rows.Scan(&o.ID, &o.Login, &o.PasswordHash, &o.Active, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		operators = append(operators, o)
	}
	return operators, rows.Err()
}

// SetActive enables or disables an operator.
func (r *OperatorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE operators SET active = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set operator active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operator not found: %s", id)
	}
	return nil
}

// Delete removes an operator.
func (r *OperatorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM operators WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operator not found: %s", id)
	}
	return nil
}
