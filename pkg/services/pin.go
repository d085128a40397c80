package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// Pin manages the pin registry. Callers are expected to be admins; the web layer enforces the role.
type Pin struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewPin(p persistence.Persistence, logger *slog.Logger) *Pin {
	return &Pin{
		persistence: p,
		logger:      logger.With("module", "pin_service"),
	}
}

// PinRequest holds the writable fields of a registry entry.
type PinRequest struct {
	MaterialType models.MaterialType
	MaterialID   int
	Action       string
}

func (r PinRequest) validate(op string) error {
	if !r.MaterialType.Valid() {
		return NewValidationError(op, "validation_error", fmt.Sprintf("invalid material_type %q", r.MaterialType), nil)
	}

	if r.MaterialID < 1 {
		return NewValidationError(op, "validation_error", "material_id must be positive", nil)
	}

	if r.Action == "" {
		return NewValidationError(op, "validation_error", "action is required", nil)
	}

	return nil
}

func (s *Pin) List(ctx context.Context) ([]*models.PinEntry, error) {
	pins, err := s.persistence.Pins().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pins: %w", err)
	}

	return pins, nil
}

func (s *Pin) FetchByID(ctx context.Context, id string) (*models.PinEntry, error) {
	pin, err := s.persistence.Pins().GetByID(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFound("FetchByID", "pin", id, err)
		}

		return nil, fmt.Errorf("failed to get pin: %w", err)
	}

	return pin, nil
}

// Create registers a new entry. An action or material id already in use is a conflict.
func (s *Pin) Create(ctx context.Context, req PinRequest) (*models.PinEntry, error) {
	err := req.validate("Create")
	if err != nil {
		return nil, err
	}

	pin := &models.PinEntry{
		MaterialType: req.MaterialType,
		MaterialID:   req.MaterialID,
		Action:       req.Action,
	}

	err = s.save(ctx, "Create", pin)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "pin registered", "pin_id", pin.ID, "action", pin.Action, "material_id", pin.MaterialID)

	return pin, nil
}

func (s *Pin) Update(ctx context.Context, id string, req PinRequest) (*models.PinEntry, error) {
	err := req.validate("Update")
	if err != nil {
		return nil, err
	}

	pin, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pin.MaterialType = req.MaterialType
	pin.MaterialID = req.MaterialID
	pin.Action = req.Action

	err = s.save(ctx, "Update", pin)
	if err != nil {
		return nil, err
	}

	return pin, nil
}

func (s *Pin) Delete(ctx context.Context, id string) error {
	err := s.persistence.Pins().Delete(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return newNotFound("Delete", "pin", id, err)
		}

		return fmt.Errorf("failed to delete pin: %w", err)
	}

	return nil
}

func (s *Pin) save(ctx context.Context, op string, pin *models.PinEntry) error {
	err := s.persistence.Pins().Save(ctx, pin)
	if err != nil {
		if persistence.IsConflict(err) {
			return newConflict(op, fmt.Sprintf("action %q or material_id %d is already registered", pin.Action, pin.MaterialID), err)
		}

		return fmt.Errorf("failed to save pin: %w", err)
	}

	return nil
}
