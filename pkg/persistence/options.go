package persistence

import (
	"fmt"
	"slices"

	"github.com/incaya/farmbot-school-backend/pkg/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SequenceSortFields is the allow-list of sortable sequence columns.
var SequenceSortFields = []string{"created_at", "updated_at", "status"}

// ListSequencesOptions filters, sorts and paginates sequence listings.
type ListSequencesOptions struct {
	// UserID restricts the listing to one owner when set.
	UserID string
	Status *models.SequenceStatus

	SortBy    string
	SortOrder string

	Limit  int
	Offset int
}

// Normalize applies defaults and checks the sort parameters against the allow-list.
func (o *ListSequencesOptions) Normalize() error {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}

	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "asc"
	}

	if !slices.Contains(SequenceSortFields, o.SortBy) {
		return fmt.Errorf("%w: %s", ErrInvalidSortField, o.SortBy)
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return fmt.Errorf("%w: %s", ErrInvalidSortOrder, o.SortOrder)
	}

	return nil
}

// ListChallengesOptions filters challenge listings.
type ListChallengesOptions struct {
	Active *bool
}
