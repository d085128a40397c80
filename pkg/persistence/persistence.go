// Package persistence provides the data storage abstraction for sequences, the pin registry, challenges,
// users and the cached device token.
package persistence

import (
	"context"

	"github.com/incaya/farmbot-school-backend/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	Sequences() SequenceRepository
	Pins() PinRepository
	Challenges() ChallengeRepository
	Users() UserRepository
	DeviceTokens() TokenStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// SequenceRepository stores sequences. Save inserts or fully replaces a row in one atomic commit.
type SequenceRepository interface {
	List(ctx context.Context, opts ListSequencesOptions) ([]*models.Sequence, error)
	GetByID(ctx context.Context, id string) (*models.Sequence, error)
	Save(ctx context.Context, sequence *models.Sequence) error
	Delete(ctx context.Context, id string) error
}

// PinRepository is the pin registry. Save rejects an entry whose action or material id is already used
// by another entry with ErrPinConflict.
type PinRepository interface {
	List(ctx context.Context) ([]*models.PinEntry, error)
	GetByID(ctx context.Context, id string) (*models.PinEntry, error)
	GetByAction(ctx context.Context, action string) (*models.PinEntry, error)
	Save(ctx context.Context, pin *models.PinEntry) error
	Delete(ctx context.Context, id string) error
}

// ChallengeRepository stores challenges. Titles are unique.
type ChallengeRepository interface {
	List(ctx context.Context, opts ListChallengesOptions) ([]*models.Challenge, error)
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	Save(ctx context.Context, challenge *models.Challenge) error
}

// UserRepository stores the accounts owning sequences. Pseudo and email are unique.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// TokenStore holds the singleton device token.
type TokenStore interface {
	// Get returns the cached token, or nil when none is stored.
	Get(ctx context.Context) (*models.DeviceToken, error)
	// Replace atomically swaps the stored token for token.
	Replace(ctx context.Context, token *models.DeviceToken) error
}
