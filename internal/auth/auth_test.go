package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeseek/freeseek/internal/config"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("same-input")
	require.NoError(t, err)
	second, err := HashPassword("same-input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.TokenTTLHours = 3

	token, err := GenerateJWT(42)
	require.NoError(t, err)

	subject, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "42", subject)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "first-secret"
	config.AppConfig.TokenTTLHours = 3
	token, err := GenerateJWT(1)
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "second-secret"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.TokenTTLHours = -1 // already expired at issue time

	token, err := GenerateJWT(7)
	require.NoError(t, err)

	// Small delay so exp is strictly in the past regardless of clock skew.
	time.Sleep(10 * time.Millisecond)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
