package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("test-secret", "user-1", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "postpilot", claims.Issuer)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken("test-secret", "user-1", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("test-secret", token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("test-secret", "user-1", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("test-secret", "not.a.token")
	assert.Error(t, err)
}
