package file

import (
	"context"
	"sort"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// PinRepository stores pin registry entries as files.
type PinRepository struct {
	store *store[models.PinEntry]
}

func (r *PinRepository) List(_ context.Context) ([]*models.PinEntry, error) {
	pins, err := r.store.all()
	if err != nil {
		return nil, err
	}

	sort.Slice(pins, func(i, j int) bool { return pins[i].Action < pins[j].Action })

	return pins, nil
}

func (r *PinRepository) GetByID(_ context.Context, id string) (*models.PinEntry, error) {
	pin, err := r.store.get(id)
	if err != nil {
		return nil, err
	}

	if pin == nil {
		return nil, persistence.NewEntityError("GetByID", "pin", id, persistence.ErrPinNotFound)
	}

	return pin, nil
}

func (r *PinRepository) GetByAction(_ context.Context, action string) (*models.PinEntry, error) {
	pins, err := r.store.all()
	if err != nil {
		return nil, err
	}

	for _, pin := range pins {
		if pin.Action == action {
			return pin, nil
		}
	}

	return nil, persistence.NewEntityError("GetByAction", "pin", action, persistence.ErrPinNotFound)
}

func (r *PinRepository) Save(_ context.Context, pin *models.PinEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pins, err := r.store.all()
	if err != nil {
		return err
	}

	for _, other := range pins {
		if other.ID == pin.ID {
			continue
		}

		if other.Action == pin.Action || other.MaterialID == pin.MaterialID {
			return persistence.NewEntityError("Save", "pin", pin.ID, persistence.ErrPinConflict)
		}
	}

	now := time.Now().UTC()

	if pin.CreatedAt.IsZero() {
		pin.CreatedAt = now
	}

	pin.UpdatedAt = now

	if pin.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		pin.ID = id
	}

	return r.store.put(pin.ID, pin)
}

func (r *PinRepository) Delete(_ context.Context, id string) error {
	deleted, err := r.store.remove(id)
	if err != nil {
		return err
	}

	if !deleted {
		return persistence.NewEntityError("Delete", "pin", id, persistence.ErrPinNotFound)
	}

	return nil
}
