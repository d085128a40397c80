package web

import (
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
)

// CreateSequenceRequest represents the request body for creating a sequence. UserID is only honoured
// for admins.
type CreateSequenceRequest struct {
	UserID      string          `json:"user_id,omitempty" validate:"omitempty,uuid"`
	ChallengeID string          `json:"challenge_id"      validate:"required,uuid"`
	Actions     []models.Action `json:"actions"`
}

// UpdateSequenceRequest represents a partial update of a sequence.
type UpdateSequenceRequest struct {
	ChallengeID *string          `json:"challenge_id,omitempty" validate:"omitempty,uuid"`
	Actions     *[]models.Action `json:"actions,omitempty"`
}

// TransitionRequest is the optional body of a status transition.
type TransitionRequest struct {
	Actions *[]models.Action `json:"actions,omitempty"`
}

type CommentRequest struct {
	Comment string `json:"comment" validate:"required,min=1"`
}

type PinRequest struct {
	MaterialType string `json:"material_type" validate:"required,oneof=PERIPHERAL SENSOR"`
	MaterialID   *int   `json:"material_id"   validate:"required,min=1"`
	Action       string `json:"action"        validate:"required"`
}

type CreateChallengeRequest struct {
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description"`
	EndDate     time.Time `json:"end_date"    validate:"required"`
	Active      *bool     `json:"active"      validate:"required"`
}

// ListSequencesResponse wraps a sequence listing with the applied paging.
type ListSequencesResponse struct {
	Sequences  []*models.Sequence `json:"sequences"`
	Pagination Pagination         `json:"pagination"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DispatchResponse is the sequence after a dispatch, with the document uploaded to the device.
type DispatchResponse struct {
	*models.Sequence

	Celery *models.Document `json:"celery"`
}

type DeviceTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"token_expires_at"`
}
