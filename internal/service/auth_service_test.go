package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
)

func TestAuthServiceRegisterSanitizesRecord(t *testing.T) {
	f := newFixture(t)
	user, err := f.auth.Register(context.Background(), models.RegisterRequest{
		Name: "Alice", Email: "Alice@Example.com", Password: "pw", Role: models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.Empty(t, user.RefreshToken)

	stored := f.store.user(user.ID)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestAuthServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", models.RoleStudent)

	_, err := f.auth.Register(context.Background(), models.RegisterRequest{
		Name: "Other", Email: "ALICE@example.com", Password: "x", Role: models.RoleTeacher,
	})
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	f := newFixture(t)
	cases := []models.RegisterRequest{
		{Email: "a@example.com", Password: "x", Role: models.RoleStudent},
		{Name: "A", Password: "x", Role: models.RoleStudent},
		{Name: "A", Email: "a@example.com", Role: models.RoleStudent},
		{Name: "A", Email: "a@example.com", Password: "x"},
		{Name: "A", Email: "a@example.com", Password: "x", Role: "admin"},
	}
	for _, req := range cases {
		_, err := f.auth.Register(context.Background(), req)
		requireStatus(t, err, http.StatusBadRequest)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", models.RoleStudent)
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "secret-alice"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resp.User.ID)
	assert.Empty(t, resp.User.RefreshToken)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.Equal(t, resp.Tokens.RefreshToken, f.store.user(alice.ID).RefreshToken)

	claims, err := f.auth.ValidateToken(resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	_, err = f.auth.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = f.auth.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.auth.Login(ctx, models.LoginRequest{Email: "alice@example.com"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestAuthServiceRefreshRotatesAndRejectsReuse(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob", models.RoleTeacher)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, models.LoginRequest{Email: "bob@example.com", Password: "secret-bob"})
	require.NoError(t, err)

	rotated, err := f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = f.auth.Refresh(ctx, rotated.Tokens.AccessToken)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestAuthServiceValidateTokenRejectsRefreshAndExpired(t *testing.T) {
	f := newFixture(t)
	f.register(t, "carol", models.RoleStudent)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, models.LoginRequest{Email: "carol@example.com", Password: "secret-carol"})
	require.NoError(t, err)

	_, err = f.auth.ValidateToken(login.Tokens.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)

	f.auth.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = f.auth.ValidateToken(login.Tokens.AccessToken)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestAuthServiceLogoutClearsSession(t *testing.T) {
	f := newFixture(t)
	dave := f.register(t, "dave", models.RoleStudent)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, models.LoginRequest{Email: "dave@example.com", Password: "secret-dave"})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, dave.ID))
	assert.Empty(t, f.store.user(dave.ID).RefreshToken)

	_, err = f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)

	requireStatus(t, f.auth.Logout(ctx, ""), http.StatusUnauthorized)
	requireStatus(t, f.auth.Logout(ctx, "ghost"), http.StatusUnauthorized)
}
