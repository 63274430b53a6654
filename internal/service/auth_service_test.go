package service

import (
	"context"
	"testing"
	"time"

	"payout-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestEnv() (*AuthServiceImpl, *fakeOperatorRepo) {
	operatorRepo := newFakeOperatorRepo()
	svc := NewAuthService(
		operatorRepo,
		NewArgon2HashService(),
		NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer"),
		NewConfigAdminVerifier("admin-secret"),
		zerolog.Nop(),
	)
	return svc, operatorRepo
}

func TestAdminLogin_IssuesToken(t *testing.T) {
	svc, _ := newAuthTestEnv()

	token, expiresAt, err := svc.AdminLogin(context.Background(), "admin-secret")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
}

func TestAdminLogin_WrongSecret(t *testing.T) {
	svc, _ := newAuthTestEnv()

	_, _, err := svc.AdminLogin(context.Background(), "wrong")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAdminLogin_DisabledWhenSecretEmpty(t *testing.T) {
	svc := NewAuthService(
		newFakeOperatorRepo(),
		NewArgon2HashService(),
		NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer"),
		NewConfigAdminVerifier(""),
		zerolog.Nop(),
	)

	_, _, err := svc.AdminLogin(context.Background(), "")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestOperatorLifecycle(t *testing.T) {
	svc, _ := newAuthTestEnv()
	ctx := context.Background()

	operator, err := svc.CreateOperator(ctx, "op1", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, operator.Active)
	assert.NotEqual(t, "s3cret-pass", operator.PasswordHash)

	// Duplicate login refused.
	_, err = svc.CreateOperator(ctx, "op1", "other")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_005", appErr.Code)

	// Login works with the right password.
	got, token, _, err := svc.OperatorLogin(ctx, "op1", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, operator.ID, got.ID)
	assert.NotEmpty(t, token)

	// Wrong password refused.
	_, _, _, err = svc.OperatorLogin(ctx, "op1", "nope")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)

	// Deactivated operator cannot log in.
	require.NoError(t, svc.SetOperatorActive(ctx, operator.ID, false))
	_, _, _, err = svc.OperatorLogin(ctx, "op1", "s3cret-pass")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_003", appErr.Code)

	// Delete removes the account entirely.
	require.NoError(t, svc.DeleteOperator(ctx, operator.ID))
	_, _, _, err = svc.OperatorLogin(ctx, "op1", "s3cret-pass")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestOperatorLogin_UnknownLogin(t *testing.T) {
	svc, _ := newAuthTestEnv()

	_, _, _, err := svc.OperatorLogin(context.Background(), "ghost", "pass")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestCreateOperator_RequiresLoginAndPassword(t *testing.T) {
	svc, _ := newAuthTestEnv()

	_, err := svc.CreateOperator(context.Background(), "", "pass")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)

	_, err = svc.CreateOperator(context.Background(), "login", "")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
}
