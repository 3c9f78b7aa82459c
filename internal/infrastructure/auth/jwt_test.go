package auth

import (
	"testing"
	"time"

	"github.com/commerce/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-for-receivables-suite",
		AccessTokenExpiration: expiration,
		Issuer:                "commerce-backend",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService(time.Minute)
	tenantID := uuid.New()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
		TenantID: tenantID,
		UserID:   userID,
		Username: "maria",
		Roles:    []string{"admin", "sales"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "maria", claims.Username)
	assert.True(t, claims.HasRole("sales"))
	assert.False(t, claims.HasRole("finance"))
}

func TestJWTService_ValidateToken(t *testing.T) {
	t.Run("rejects garbage", func(t *testing.T) {
		svc := newTestJWTService(time.Minute)

		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		svc := newTestJWTService(-time.Minute)

		token, _, err := svc.GenerateToken(GenerateTokenInput{
			TenantID: uuid.New(),
			UserID:   uuid.New(),
		})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "a-completely-different-secret",
			AccessTokenExpiration: time.Minute,
			Issuer:                "commerce-backend",
		})

		token, _, err := other.GenerateToken(GenerateTokenInput{
			TenantID: uuid.New(),
			UserID:   uuid.New(),
		})
		require.NoError(t, err)

		svc := newTestJWTService(time.Minute)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
