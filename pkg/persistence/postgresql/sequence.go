package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

const sequenceColumns = `
	id
  , user_id
  , challenge_id
  , status
  , actions
  , fb_seq_id
  , comments
  , created_at
  , updated_at
`

// SequenceRepository handles sequence-related database operations.
type SequenceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSequenceRepository creates a new sequence repository.
func NewSequenceRepository(db *sql.DB, logger *slog.Logger) *SequenceRepository {
	return &SequenceRepository{db: db, logger: logger}
}

// List returns the sequences matching opts. The sort column comes from an allow-list so it can be
// interpolated.
func (r *SequenceRepository) List(ctx context.Context, opts persistence.ListSequencesOptions) ([]*models.Sequence, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, persistence.NewEntityError("List", "sequence", "", err)
	}

	var (
		conditions []string
		args       []any
	)

	if opts.UserID != "" {
		args = append(args, opts.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + sequenceColumns + " FROM sequences"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, opts.Limit, opts.Offset)
	query += fmt.Sprintf(" ORDER BY %s %s, id LIMIT $%d OFFSET $%d",
		opts.SortBy, strings.ToUpper(opts.SortOrder), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	sequences := make([]*models.Sequence, 0)

	for rows.Next() {
		sequence, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}

		sequences = append(sequences, sequence)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating sequences: %w", err)
	}

	return sequences, nil
}

// GetByID returns a sequence by its ID.
func (r *SequenceRepository) GetByID(ctx context.Context, id string) (*models.Sequence, error) {
	if uuid.Validate(id) != nil {
		return nil, persistence.NewEntityError("GetByID", "sequence", id, persistence.ErrSequenceNotFound)
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+sequenceColumns+" FROM sequences WHERE id = $1", id)

	sequence, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "sequence", id, persistence.ErrSequenceNotFound)
		}

		return nil, fmt.Errorf("failed to scan sequence: %w", err)
	}

	return sequence, nil
}

// Save inserts or replaces a sequence.
func (r *SequenceRepository) Save(ctx context.Context, sequence *models.Sequence) error {
	now := time.Now().UTC()

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = now
	}

	sequence.UpdatedAt = now

	if sequence.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate sequence ID: %w", err)
		}

		sequence.ID = id.String()
	}

	actionsJSON, err := json.Marshal(nonNil(sequence.Actions))
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	commentsJSON, err := json.Marshal(nonNil(sequence.Comments))
	if err != nil {
		return fmt.Errorf("failed to marshal comments: %w", err)
	}

	query := `
		INSERT INTO sequences (id, user_id, challenge_id, status, actions, fb_seq_id, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			challenge_id = EXCLUDED.challenge_id,
			status = EXCLUDED.status,
			actions = EXCLUDED.actions,
			fb_seq_id = EXCLUDED.fb_seq_id,
			comments = EXCLUDED.comments,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		sequence.ID,
		sequence.UserID,
		sequence.ChallengeID,
		string(sequence.Status),
		actionsJSON,
		sequence.DeviceSequenceID,
		commentsJSON,
		sequence.CreatedAt,
		sequence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sequence: %w", err)
	}

	return nil
}

// Delete removes a sequence.
func (r *SequenceRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return persistence.NewEntityError("Delete", "sequence", id, persistence.ErrSequenceNotFound)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM sequences WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete sequence: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Delete", "sequence", id, persistence.ErrSequenceNotFound)
	}

	return nil
}

func scanSequence(row rowScanner) (*models.Sequence, error) {
	var (
		sequence     models.Sequence
		status       string
		actionsJSON  []byte
		commentsJSON []byte
		deviceID     sql.NullInt64
	)

	err := row.Scan(
		&sequence.ID,
		&sequence.UserID,
		&sequence.ChallengeID,
		&status,
		&actionsJSON,
		&deviceID,
		&commentsJSON,
		&sequence.CreatedAt,
		&sequence.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sequence.Status = models.SequenceStatus(status)

	if deviceID.Valid {
		id := int(deviceID.Int64)
		sequence.DeviceSequenceID = &id
	}

	err = json.Unmarshal(actionsJSON, &sequence.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	err = json.Unmarshal(commentsJSON, &sequence.Comments)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
	}

	return &sequence, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
