// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/file"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/postgresql"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/redis"
)

// NewPersistence picks the backend from the URL scheme: postgres:// or postgresql:// for PostgreSQL,
// anything else is a file:// root directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

// NewTokenStore returns the device token store. An empty URL keeps the token next to the other data;
// redis:// shares it through Redis. The returned close function is never nil.
func NewTokenStore(ctx context.Context, logger *slog.Logger, tokenStoreURL string, p persistence.Persistence) (persistence.TokenStore, func() error, error) {
	noop := func() error { return nil }

	switch parseProvider(tokenStoreURL) {
	case "":
		return p.DeviceTokens(), noop, nil
	case "redis", "rediss":
		store, err := redis.NewTokenStore(ctx, logger, tokenStoreURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create redis token store: %w", err)
		}

		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported token store %q", tokenStoreURL)
	}
}

func parseProvider(url string) string {
	scheme, _, found := strings.Cut(url, "://")
	if !found {
		if url == "" {
			return ""
		}

		return "file"
	}

	return scheme
}
