package farmbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// Authenticator obtains a fresh device token.
type Authenticator interface {
	Authenticate(ctx context.Context) (*models.DeviceToken, error)
}

// TokenCache hands out the cached device token while its expiry date has not passed and refreshes it
// otherwise. Concurrent refreshes are not serialized: the last Replace wins.
type TokenCache struct {
	store  persistence.TokenStore
	auth   Authenticator
	now    func() time.Time
	logger *slog.Logger
}

type TokenCacheOption func(*TokenCache)

// WithClock replaces time.Now. Expiry dates are compared in the clock's location.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		c.now = now
	}
}

func NewTokenCache(store persistence.TokenStore, auth Authenticator, logger *slog.Logger, opts ...TokenCacheOption) *TokenCache {
	cache := &TokenCache{
		store:  store,
		auth:   auth,
		now:    time.Now,
		logger: logger.With("module", "token_cache"),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// GetValidToken returns the cached token unchanged when still valid, without contacting the device API.
func (c *TokenCache) GetValidToken(ctx context.Context) (*models.DeviceToken, error) {
	cached, err := c.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device token: %w", err)
	}

	if cached.ValidAt(c.now()) {
		return cached, nil
	}

	return c.Refresh(ctx)
}

// Refresh authenticates unconditionally and replaces the stored token.
func (c *TokenCache) Refresh(ctx context.Context) (*models.DeviceToken, error) {
	c.logger.InfoContext(ctx, "refreshing device token")

	token, err := c.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	err = c.store.Replace(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to store device token: %w", err)
	}

	return token, nil
}
