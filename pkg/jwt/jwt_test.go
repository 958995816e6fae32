package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	Configure("test-secret", time.Hour, "test")

	token, err := GenerateToken("m1", "rahim@test.com", "Rahim Ahmed", "MODERATOR", []string{"order:create"}, "v1")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "m1", claims.UserID)
	assert.Equal(t, "MODERATOR", claims.Role)
	assert.Equal(t, []string{"order:create"}, claims.Privileges)
	assert.Equal(t, "v1", claims.TokenVersion)
	assert.Equal(t, "test", claims.Issuer)
}

func TestValidateToken_Rejects(t *testing.T) {
	Configure("test-secret", time.Hour, "test")
	token, err := GenerateToken("a1", "admin@test.com", "System Admin", "ADMIN", nil, "v1")
	require.NoError(t, err)

	_, err = ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	Configure("other-secret", 0, "")
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
