package farmbot

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	token    *models.DeviceToken
	replaced int
}

func (s *memoryStore) Get(context.Context) (*models.DeviceToken, error) { return s.token, nil }

func (s *memoryStore) Replace(_ context.Context, token *models.DeviceToken) error {
	s.token = token
	s.replaced++

	return nil
}

type countingAuth struct {
	calls int
	err   error
}

func (a *countingAuth) Authenticate(context.Context) (*models.DeviceToken, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}

	return &models.DeviceToken{Token: "fresh", ExpiresAt: time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

var today = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

func TestTokenCache_ReusesValidToken(t *testing.T) {
	store := &memoryStore{token: &models.DeviceToken{Token: "cached", ExpiresAt: today.AddDate(0, 0, 1)}}
	auth := &countingAuth{}
	cache := NewTokenCache(store, auth, slog.Default(), WithClock(fixedClock))

	first, err := cache.GetValidToken(t.Context())
	require.NoError(t, err)

	second, err := cache.GetValidToken(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "cached", first.Token)
	assert.Equal(t, first.Token, second.Token)
	assert.Zero(t, auth.calls)
	assert.Zero(t, store.replaced)
}

func TestTokenCache_ExpiryBoundary(t *testing.T) {
	t.Run("expiring today is still valid", func(t *testing.T) {
		// Earlier in the day than now: only the date matters.
		store := &memoryStore{token: &models.DeviceToken{Token: "cached", ExpiresAt: time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)}}
		auth := &countingAuth{}

		token, err := NewTokenCache(store, auth, slog.Default(), WithClock(fixedClock)).GetValidToken(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "cached", token.Token)
		assert.Zero(t, auth.calls)
	})

	t.Run("expired yesterday triggers re-authentication", func(t *testing.T) {
		store := &memoryStore{token: &models.DeviceToken{Token: "cached", ExpiresAt: time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)}}
		auth := &countingAuth{}

		token, err := NewTokenCache(store, auth, slog.Default(), WithClock(fixedClock)).GetValidToken(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "fresh", token.Token)
		assert.Equal(t, 1, auth.calls)
		assert.Equal(t, "fresh", store.token.Token)
		assert.Equal(t, 1, store.replaced)
	})
}

func TestTokenCache_EmptyStoreAndAuthFailure(t *testing.T) {
	store := &memoryStore{}
	auth := &countingAuth{err: &DeviceAuthError{Status: 401, Payload: "denied"}}

	_, err := NewTokenCache(store, auth, slog.Default(), WithClock(fixedClock)).GetValidToken(t.Context())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceAuth))
	assert.Nil(t, store.token)
	assert.Equal(t, 1, auth.calls)
}
