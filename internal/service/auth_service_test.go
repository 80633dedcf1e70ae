package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

func signTestToken(t *testing.T, secret string, claims models.JWTClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func adminClaims(role models.Role, expiresIn time.Duration) models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID: "admin-1",
		Role:   role,
		Email:  "ops@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tutor-identity",
			Audience:  jwt.ClaimStrings{"admin-api"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func newTestAuthService() *AuthService {
	return NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "tutor-identity", Audience: []string{"admin-api"}})
}

func TestAuthServiceValidateToken(t *testing.T) {
	claims, err := newTestAuthService().ValidateToken(signTestToken(t, "secret", adminClaims(models.RoleAdmin, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.ValidateToken(signTestToken(t, "other", adminClaims(models.RoleAdmin, time.Hour)))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken(signTestToken(t, "secret", adminClaims(models.RoleAdmin, -time.Minute)))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := adminClaims(models.RoleAdmin, time.Hour)
	wrongIssuer.Issuer = "someone-else"
	_, err = svc.ValidateToken(signTestToken(t, "secret", wrongIssuer))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-jwt")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsNonOperatorRoles(t *testing.T) {
	_, err := newTestAuthService().ValidateToken(signTestToken(t, "secret", adminClaims(models.Role("STUDENT"), time.Hour)))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
