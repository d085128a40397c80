// Package redis provides a Redis-backed device token store, shared by every API replica.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

// DefaultKey is the key holding the singleton device token.
const DefaultKey = "farmbot_school:device_token"

// TokenStore implements persistence.TokenStore on a single Redis key. SET replaces the value atomically.
type TokenStore struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewTokenStore connects to the Redis server at url (redis://host:port/db).
func NewTokenStore(ctx context.Context, logger *slog.Logger, url string) (*TokenStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &TokenStore{client: client, key: DefaultKey, logger: logger.With("module", "redis_token_store")}, nil
}

// Get returns the stored token, or nil when the key is absent.
func (s *TokenStore) Get(ctx context.Context) (*models.DeviceToken, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read device token: %w", err)
	}

	var token models.DeviceToken

	err = json.Unmarshal(data, &token)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable device token", "error", err)

		return nil, nil
	}

	return &token, nil
}

// Replace overwrites the stored token.
func (s *TokenStore) Replace(ctx context.Context, token *models.DeviceToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal device token: %w", err)
	}

	err = s.client.Set(ctx, s.key, data, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to store device token: %w", err)
	}

	return nil
}

// Close releases the Redis connection.
func (s *TokenStore) Close() error {
	return s.client.Close()
}
