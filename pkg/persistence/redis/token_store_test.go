package redis_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())

		cancel()
	})

	return ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestTokenStore_GetAndReplace(t *testing.T) {
	ctx, url := setupRedis(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := redis.NewTokenStore(ctx, logger, url)
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	token, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	expires := time.Date(2031, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Replace(ctx, &models.DeviceToken{Token: "one", ExpiresAt: expires}))
	require.NoError(t, store.Replace(ctx, &models.DeviceToken{Token: "two", ExpiresAt: expires}))

	token, err = store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "two", token.Token)
	assert.True(t, expires.Equal(token.ExpiresAt))
}

func TestNewTokenStore_InvalidURL(t *testing.T) {
	_, err := redis.NewTokenStore(context.Background(), slog.Default(), "not-a-url")
	assert.Error(t, err)
}
