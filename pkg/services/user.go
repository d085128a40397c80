package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// User manages the accounts owning sequences.
type User struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewUser(p persistence.Persistence, logger *slog.Logger) *User {
	return &User{
		persistence: p,
		logger:      logger.With("module", "user_service"),
	}
}

type CreateUserRequest struct {
	Pseudo string
	Name   string
	Email  string
	Role   models.Role
}

// Create stores a new user. Pseudo and email are unique.
func (s *User) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if req.Pseudo == "" || req.Email == "" {
		return nil, NewValidationError("Create", "validation_error", "pseudo and email are required", nil)
	}

	if !req.Role.Valid() {
		return nil, NewValidationError("Create", "validation_error", fmt.Sprintf("invalid role %q", req.Role), nil)
	}

	user := &models.User{
		Pseudo: req.Pseudo,
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
	}

	err := s.persistence.Users().Save(ctx, user)
	if err != nil {
		if persistence.IsConflict(err) {
			return nil, newConflict("Create", "pseudo or email already in use", err)
		}

		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)

	return user, nil
}

func (s *User) FetchByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.persistence.Users().GetByID(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFound("FetchByID", "user", id, err)
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
