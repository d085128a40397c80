package file

import (
	"context"
	"sort"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// ChallengeRepository stores challenges as files.
type ChallengeRepository struct {
	store *store[models.Challenge]
}

func (r *ChallengeRepository) List(_ context.Context, opts persistence.ListChallengesOptions) ([]*models.Challenge, error) {
	all, err := r.store.all()
	if err != nil {
		return nil, err
	}

	challenges := make([]*models.Challenge, 0, len(all))

	for _, challenge := range all {
		if opts.Active != nil && challenge.Active != *opts.Active {
			continue
		}

		challenges = append(challenges, challenge)
	}

	sort.Slice(challenges, func(i, j int) bool { return challenges[i].CreatedAt.After(challenges[j].CreatedAt) })

	return challenges, nil
}

func (r *ChallengeRepository) GetByID(_ context.Context, id string) (*models.Challenge, error) {
	challenge, err := r.store.get(id)
	if err != nil {
		return nil, err
	}

	if challenge == nil {
		return nil, persistence.NewEntityError("GetByID", "challenge", id, persistence.ErrChallengeNotFound)
	}

	return challenge, nil
}

func (r *ChallengeRepository) Save(_ context.Context, challenge *models.Challenge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all, err := r.store.all()
	if err != nil {
		return err
	}

	for _, other := range all {
		if other.ID != challenge.ID && other.Title == challenge.Title {
			return persistence.NewEntityError("Save", "challenge", challenge.ID, persistence.ErrChallengeConflict)
		}
	}

	now := time.Now().UTC()

	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = now
	}

	challenge.UpdatedAt = now

	if challenge.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		challenge.ID = id
	}

	return r.store.put(challenge.ID, challenge)
}
