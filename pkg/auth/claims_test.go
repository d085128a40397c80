package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	user := &models.User{ID: "0198a5a2-0000-7000-8000-000000000001", Pseudo: "alice", Role: models.RoleAdmin}

	token, err := GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)

	identity := claims.Identity()
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, "alice", identity.Pseudo)
	assert.True(t, identity.IsAdmin())
}

func TestParseToken_Rejections(t *testing.T) {
	user := &models.User{ID: "u1", Pseudo: "bob", Role: models.RoleUser}

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(user, testSecret, time.Hour)
		require.NoError(t, err)

		_, err = ParseToken(token, "other")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateToken(user, testSecret, -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(token, testSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role: "ROOT",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = ParseToken(token, testSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := GenerateToken(user, "", time.Hour)
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}
