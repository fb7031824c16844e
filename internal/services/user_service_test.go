package services

import (
	"context"
	"testing"

	"daan-backend/internal/auth"
	"daan-backend/internal/config"
	"daan-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (*memUserStore, *UserService) {
	users := newMemUserStore()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "daan-backend-test"
	return users, NewUserService(users, auth.NewJWTManager(cfg))
}

func TestCreateUserHashesPassword(t *testing.T) {
	users, svc := newUserFixture()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Dinesh", Phone: "9000000001", Email: "dinesh@example.com",
		Password: "secret123", Role: models.RoleAccountant,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.True(t, auth.VerifyPassword(user.PasswordHash, "secret123"))

	// Duplicate phone is refused.
	_, err = svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Other", Phone: "9000000001", Role: models.RoleMember,
	})
	assert.ErrorIs(t, err, ErrBusinessRule)

	// Members default when no role given.
	member, err := svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Ramesh", Phone: "9000000002",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, member.Role)

	stored, err := users.Get(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordHash)
}

func TestLogin(t *testing.T) {
	_, svc := newUserFixture()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Dinesh", Phone: "9000000001", Email: "dinesh@example.com",
		Password: "secret123", Role: models.RoleAccountant,
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "dinesh@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Empty(t, resp.User.PasswordHash)
	assert.Equal(t, models.RoleAccountant, resp.User.Role)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "dinesh@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrBusinessRule)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrBusinessRule)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "", Password: ""})
	assert.ErrorIs(t, err, ErrValidation)
}
