package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConfigAdminVerifier checks the admin shared secret from configuration.
type ConfigAdminVerifier struct {
	password []byte
}

// NewConfigAdminVerifier creates an AdminVerifier backed by a static secret.
func NewConfigAdminVerifier(password string) *ConfigAdminVerifier {
	return &ConfigAdminVerifier{password: []byte(password)}
}

// Verify compares in constant time. An empty configured secret never
// matches: it means the admin surface is disabled.
func (v *ConfigAdminVerifier) Verify(password string) bool {
	if len(v.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.password, []byte(password)) == 1
}

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	operatorRepo ports.OperatorRepository
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
	adminVerify  ports.AdminVerifier
	log          zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	operatorRepo ports.OperatorRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	adminVerify ports.AdminVerifier,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		operatorRepo: operatorRepo,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
		adminVerify:  adminVerify,
		log:          log,
	}
}

// AdminLogin exchanges the admin secret for a session token. The secret is
// presented once here instead of on every privileged call.
func (s *AuthServiceImpl) AdminLogin(ctx context.Context, password string) (string, time.Time, error) {
	if !s.adminVerify.Verify(password) {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(uuid.Nil, domain.RoleAdmin)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Msg("admin session issued")
	return token, expiresAt, nil
}

// OperatorLogin authenticates an operator by login and password.
func (s *AuthServiceImpl) OperatorLogin(ctx context.Context, login, password string) (*domain.Operator, string, time.Time, error) {
	operator, err := s.operatorRepo.GetByLogin(ctx, login)
	if err != nil {
		return nil, "", time.Time{}, apperror.InternalError(fmt.Errorf("get operator: %w", err))
	}
	if operator == nil {
		return nil, "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, operator.PasswordHash)
	if err != nil {
		return nil, "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if !operator.Active {
		return nil, "", time.Time{}, apperror.ErrOperatorDisabled()
	}

	token, expiresAt, err := s.tokenSvc.Generate(operator.ID, domain.RoleOperator)
	if err != nil {
		return nil, "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("operator_id", operator.ID.String()).Msg("operator session issued")
	return operator, token, expiresAt, nil
}

// CreateOperator registers a new operator with an Argon2id-hashed password.
func (s *AuthServiceImpl) CreateOperator(ctx context.Context, login, password string) (*domain.Operator, error) {
	if login == "" || password == "" {
		return nil, apperror.Validation("login and password are required")
	}

	existing, err := s.operatorRepo.GetByLogin(ctx, login)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check login: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrLoginTaken()
	}

	hash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	operator := &domain.Operator{
		ID:           uuid.New(),
		Login:        login,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.operatorRepo.Create(ctx, operator); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create operator: %w", err))
	}

	s.log.Info().Str("operator_id", operator.ID.String()).Str("login", login).Msg("operator created")
	return operator, nil
}

// ListOperators returns all operators.
func (s *AuthServiceImpl) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	operators, err := s.operatorRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list operators: %w", err))
	}
	return operators, nil
}

// SetOperatorActive enables or disables an operator. Disabling does not
// revoke live sessions; tokens simply age out.
func (s *AuthServiceImpl) SetOperatorActive(ctx context.Context, id uuid.UUID, active bool) error {
	operator, err := s.operatorRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get operator: %w", err))
	}
	if operator == nil {
		return apperror.ErrNotFound("operator")
	}

	if err := s.operatorRepo.SetActive(ctx, id, active); err != nil {
		return apperror.InternalError(fmt.Errorf("set operator active: %w", err))
	}

	s.log.Info().Str("operator_id", id.String()).Bool("active", active).Msg("operator status changed")
	return nil
}

// DeleteOperator removes an operator account.
func (s *AuthServiceImpl) DeleteOperator(ctx context.Context, id uuid.UUID) error {
	operator, err := s.operatorRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get operator: %w", err))
	}
	if operator == nil {
		return apperror.ErrNotFound("operator")
	}

	if err := s.operatorRepo.Delete(ctx, id); err != nil {
		return apperror.InternalError(fmt.Errorf("delete operator: %w", err))
	}

	s.log.Info().Str("operator_id", id.String()).Msg("operator deleted")
	return nil
}
