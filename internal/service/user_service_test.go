package service

import (
	"context"
	"testing"
	"time"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupTokenValidatesAgainstConfiguredSecret(t *testing.T) {
	// The process environment may carry a different secret than the one
	// the auth middleware validates with. Minted tokens must follow the
	// configured service, not the environment.
	t.Setenv("JWT_SECRET", "stale-env-secret")

	store := repository.NewMemoryStore()
	tokens := jwt.NewService("configured-secret", time.Hour)
	svc := NewUserService(store.Users(), tokens)

	user, token, err := svc.CreateUser(context.Background(), &models.CreateUserRequest{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "s3cret-pass",
		Role:     string(jwt.RoleManager),
	})
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, jwt.RoleManager, claims.Role)

	_, err = jwt.NewService("stale-env-secret", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestSignupTokenHonorsConfiguredExpiry(t *testing.T) {
	store := repository.NewMemoryStore()
	tokens := jwt.NewService("configured-secret", 30*time.Minute)
	svc := NewUserService(store.Users(), tokens)

	_, token, err := svc.CreateUser(context.Background(), &models.CreateUserRequest{
		Name:     "Eli",
		Email:    "eli@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	remaining := time.Until(claims.ExpiresAt.Time)
	assert.Greater(t, remaining, 29*time.Minute)
	assert.LessOrEqual(t, remaining, 30*time.Minute)
}
