package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

const pinColumns = "id, material_type, material_id, action, created_at, updated_at"

// PinRepository stores the pin registry.
type PinRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPinRepository creates a new pin repository.
func NewPinRepository(db *sql.DB, logger *slog.Logger) *PinRepository {
	return &PinRepository{db: db, logger: logger}
}

// List returns every pin entry ordered by action.
func (r *PinRepository) List(ctx context.Context) ([]*models.PinEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+pinColumns+" FROM pins ORDER BY action")
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	pins := make([]*models.PinEntry, 0)

	for rows.Next() {
		pin, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}

		pins = append(pins, pin)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating pins: %w", err)
	}

	return pins, nil
}

func (r *PinRepository) GetByID(ctx context.Context, id string) (*models.PinEntry, error) {
	if uuid.Validate(id) != nil {
		return nil, persistence.NewEntityError("GetByID", "pin", id, persistence.ErrPinNotFound)
	}

	return r.getOne(ctx, "GetByID", id, "SELECT "+pinColumns+" FROM pins WHERE id = $1")
}

// GetByAction returns the entry registered for a logical action name.
func (r *PinRepository) GetByAction(ctx context.Context, action string) (*models.PinEntry, error) {
	return r.getOne(ctx, "GetByAction", action, "SELECT "+pinColumns+" FROM pins WHERE action = $1")
}

func (r *PinRepository) getOne(ctx context.Context, op, key, query string) (*models.PinEntry, error) {
	pin, err := scanPin(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError(op, "pin", key, persistence.ErrPinNotFound)
		}

		return nil, fmt.Errorf("failed to scan pin: %w", err)
	}

	return pin, nil
}

// Save inserts or replaces a pin entry. A duplicate action or material id yields ErrPinConflict.
func (r *PinRepository) Save(ctx context.Context, pin *models.PinEntry) error {
	now := time.Now().UTC()

	if pin.CreatedAt.IsZero() {
		pin.CreatedAt = now
	}

	pin.UpdatedAt = now

	if pin.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate pin ID: %w", err)
		}

		pin.ID = id.String()
	}

	query := `
		INSERT INTO pins (id, material_type, material_id, action, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			material_type = EXCLUDED.material_type,
			material_id = EXCLUDED.material_id,
			action = EXCLUDED.action,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		pin.ID, string(pin.MaterialType), pin.MaterialID, pin.Action, pin.CreatedAt, pin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewEntityError("Save", "pin", pin.ID, persistence.ErrPinConflict)
		}

		return fmt.Errorf("failed to save pin: %w", err)
	}

	return nil
}

func (r *PinRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return persistence.NewEntityError("Delete", "pin", id, persistence.ErrPinNotFound)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM pins WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete pin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Delete", "pin", id, persistence.ErrPinNotFound)
	}

	return nil
}

func scanPin(row rowScanner) (*models.PinEntry, error) {
	var (
		pin          models.PinEntry
		materialType string
	)

	err := row.Scan(&pin.ID, &materialType, &pin.MaterialID, &pin.Action, &pin.CreatedAt, &pin.UpdatedAt)
	if err != nil {
		return nil, err
	}

	pin.MaterialType = models.MaterialType(materialType)

	return &pin, nil
}
