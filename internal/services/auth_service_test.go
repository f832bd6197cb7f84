package services_test

import (
	"testing"
	"time"

	"gabarito/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_jwt_secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthService_UserID(t *testing.T) {
	authService := services.NewAuthService(testJWTSecret, "")
	assert.True(t, authService.Enabled())

	token := signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{
		"id":  "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	userID, err := authService.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestAuthService_CustomNumericClaim(t *testing.T) {
	authService := services.NewAuthService(testJWTSecret, "user_id")
	token := signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{"user_id": 17})

	userID, err := authService.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "17", userID)
}

func TestAuthService_RejectsInvalidTokens(t *testing.T) {
	authService := services.NewAuthService(testJWTSecret, "id")

	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"id": "u"}),
		"expired": signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{
			"id": "u", "exp": time.Now().Add(-time.Hour).Unix(),
		}),
		"none algorithm": signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"id": "u"}),
		"missing claim":  signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{"sub": "u"}),
		"garbage":        "not.a.token",
	}
	for name, token := range cases {
		_, err := authService.UserID(token)
		assert.ErrorIs(t, err, services.ErrInvalidToken, name)
	}
}

func TestAuthService_DisabledWithoutSecret(t *testing.T) {
	assert.False(t, services.NewAuthService("", "id").Enabled())
}
