package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := generateWithSecret("u-1", "a@example.com", RoleAgent, "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := validateWithSecret(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, RoleAgent, claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := generateWithSecret("u-1", "a@example.com", RoleAgent, "right", time.Hour)
	require.NoError(t, err)

	_, err = validateWithSecret(token, "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	token, err := generateWithSecret("u-1", "a@example.com", RoleAgent, "s", -time.Minute)
	require.NoError(t, err)

	_, err = validateWithSecret(token, "s")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManagerImpliesAgent(t *testing.T) {
	mgr := &JWTClaims{Role: RoleManager}
	agent := &JWTClaims{Role: RoleAgent}

	assert.True(t, mgr.HasRole(RoleAgent))
	assert.True(t, mgr.HasRole(RoleManager))
	assert.True(t, mgr.Elevated())

	assert.True(t, agent.HasRole(RoleAgent))
	assert.False(t, agent.HasRole(RoleManager))
	assert.False(t, agent.Elevated())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAgent))
	assert.True(t, ValidRole(RoleManager))
	assert.False(t, ValidRole("admin"))
}
