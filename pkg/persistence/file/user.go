package file

import (
	"context"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// UserRepository stores users as files.
type UserRepository struct {
	store *store[models.User]
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	user, err := r.store.get(id)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, persistence.NewEntityError("GetByID", "user", id, persistence.ErrUserNotFound)
	}

	return user, nil
}

func (r *UserRepository) Save(_ context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all, err := r.store.all()
	if err != nil {
		return err
	}

	for _, other := range all {
		if other.ID != user.ID && (other.Pseudo == user.Pseudo || other.Email == user.Email) {
			return persistence.NewEntityError("Save", "user", user.ID, persistence.ErrUserConflict)
		}
	}

	now := time.Now().UTC()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	user.UpdatedAt = now

	if user.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		user.ID = id
	}

	return r.store.put(user.ID, user)
}
