package mocks

import (
	"context"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockDevice mocks the device API calls made by the pin resolver and the sequence service.
type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) ListPins(ctx context.Context, token string, materialType models.MaterialType) ([]models.DevicePin, error) {
	args := m.Called(ctx, token, materialType)

	pins, _ := args.Get(0).([]models.DevicePin)

	return pins, args.Error(1)
}

func (m *MockDevice) CreateOrUpdateSequence(ctx context.Context, token string, doc *models.Document, id *int) (int, error) {
	args := m.Called(ctx, token, doc, id)

	return args.Int(0), args.Error(1)
}

func (m *MockDevice) DeleteSequence(ctx context.Context, token string, id int) error {
	args := m.Called(ctx, token, id)

	return args.Error(0)
}

// MockTokenProvider mocks the device token cache.
type MockTokenProvider struct {
	mock.Mock
}

func (m *MockTokenProvider) GetValidToken(ctx context.Context) (*models.DeviceToken, error) {
	args := m.Called(ctx)

	token, _ := args.Get(0).(*models.DeviceToken)

	return token, args.Error(1)
}
