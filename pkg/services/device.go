package services

import (
	"context"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/models"
)

// TokenRefresher returns a device token, authenticating again only when the cached one expired.
type TokenRefresher interface {
	GetValidToken(ctx context.Context) (*models.DeviceToken, error)
}

// Device exposes the device token to admins.
type Device struct {
	tokens TokenRefresher
	logger *slog.Logger
}

func NewDevice(tokens TokenRefresher, logger *slog.Logger) *Device {
	return &Device{
		tokens: tokens,
		logger: logger.With("module", "device_service"),
	}
}

// Token returns a valid device token. Device failures are returned unchanged.
func (s *Device) Token(ctx context.Context) (*models.DeviceToken, error) {
	token, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "device token unavailable", "error", err)

		return nil, err
	}

	return token, nil
}
