package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// Challenge exposes the assignments sequences are written for.
type Challenge struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewChallenge(p persistence.Persistence, logger *slog.Logger) *Challenge {
	return &Challenge{
		persistence: p,
		logger:      logger.With("module", "challenge_service"),
	}
}

// List returns challenges, optionally only the active (or inactive) ones.
func (s *Challenge) List(ctx context.Context, active *bool) ([]*models.Challenge, error) {
	challenges, err := s.persistence.Challenges().List(ctx, persistence.ListChallengesOptions{Active: active})
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	return challenges, nil
}

func (s *Challenge) FetchByID(ctx context.Context, id string) (*models.Challenge, error) {
	challenge, err := s.persistence.Challenges().GetByID(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFound("FetchByID", "challenge", id, err)
		}

		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return challenge, nil
}

type CreateChallengeRequest struct {
	Title       string
	Description string
	EndDate     time.Time
	Active      bool
}

// Create stores a new challenge. Titles are unique.
func (s *Challenge) Create(ctx context.Context, req CreateChallengeRequest) (*models.Challenge, error) {
	if req.Title == "" {
		return nil, NewValidationError("Create", "validation_error", "title is required", nil)
	}

	challenge := &models.Challenge{
		Title:       req.Title,
		Description: req.Description,
		EndDate:     req.EndDate,
		Active:      req.Active,
	}

	err := s.persistence.Challenges().Save(ctx, challenge)
	if err != nil {
		if persistence.IsConflict(err) {
			return nil, newConflict("Create", fmt.Sprintf("challenge %q already exists", req.Title), err)
		}

		return nil, fmt.Errorf("failed to save challenge: %w", err)
	}

	return challenge, nil
}
