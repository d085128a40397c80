package file

import (
	"context"
	"sort"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// SequenceRepository handles sequence-related file operations.
type SequenceRepository struct {
	store *store[models.Sequence]
}

// List returns filtered, sorted and paginated sequences with in-memory operations.
func (r *SequenceRepository) List(_ context.Context, opts persistence.ListSequencesOptions) ([]*models.Sequence, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, persistence.NewEntityError("List", "sequence", "", err)
	}

	all, err := r.store.all()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Sequence, 0, len(all))

	for _, sequence := range all {
		if opts.UserID != "" && sequence.UserID != opts.UserID {
			continue
		}

		if opts.Status != nil && sequence.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, sequence)
	}

	sortSequences(filtered, opts.SortBy, opts.SortOrder)

	if opts.Offset >= len(filtered) {
		return make([]*models.Sequence, 0), nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return filtered[opts.Offset:end], nil
}

func sortSequences(sequences []*models.Sequence, sortBy, sortOrder string) {
	sort.SliceStable(sequences, func(i, j int) bool {
		a, b := sequences[i], sequences[j]
		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "status":
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func (r *SequenceRepository) GetByID(_ context.Context, id string) (*models.Sequence, error) {
	sequence, err := r.store.get(id)
	if err != nil {
		return nil, err
	}

	if sequence == nil {
		return nil, persistence.NewEntityError("GetByID", "sequence", id, persistence.ErrSequenceNotFound)
	}

	return sequence, nil
}

func (r *SequenceRepository) Save(_ context.Context, sequence *models.Sequence) error {
	now := time.Now().UTC()

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = now
	}

	sequence.UpdatedAt = now

	if sequence.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		sequence.ID = id
	}

	return r.store.put(sequence.ID, sequence)
}

func (r *SequenceRepository) Delete(_ context.Context, id string) error {
	deleted, err := r.store.remove(id)
	if err != nil {
		return err
	}

	if !deleted {
		return persistence.NewEntityError("Delete", "sequence", id, persistence.ErrSequenceNotFound)
	}

	return nil
}
