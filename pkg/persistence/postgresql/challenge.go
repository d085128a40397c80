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

const challengeColumns = "id, title, description, end_date, active, created_at, updated_at"

// ChallengeRepository handles challenge-related database operations.
type ChallengeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *sql.DB, logger *slog.Logger) *ChallengeRepository {
	return &ChallengeRepository{db: db, logger: logger}
}

func (r *ChallengeRepository) List(ctx context.Context, opts persistence.ListChallengesOptions) ([]*models.Challenge, error) {
	query := "SELECT " + challengeColumns + " FROM challenges"

	var args []any
	if opts.Active != nil {
		query += " WHERE active = $1"

		args = append(args, *opts.Active)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	challenges := make([]*models.Challenge, 0)

	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}

		challenges = append(challenges, challenge)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	return challenges, nil
}

func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	if uuid.Validate(id) != nil {
		return nil, persistence.NewEntityError("GetByID", "challenge", id, persistence.ErrChallengeNotFound)
	}

	challenge, err := scanChallenge(r.db.QueryRowContext(ctx, "SELECT "+challengeColumns+" FROM challenges WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "challenge", id, persistence.ErrChallengeNotFound)
		}

		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}

	return challenge, nil
}

func (r *ChallengeRepository) Save(ctx context.Context, challenge *models.Challenge) error {
	now := time.Now().UTC()

	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = now
	}

	challenge.UpdatedAt = now

	if challenge.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate challenge ID: %w", err)
		}

		challenge.ID = id.String()
	}

	var endDate sql.NullTime
	if !challenge.EndDate.IsZero() {
		endDate = sql.NullTime{Time: challenge.EndDate, Valid: true}
	}

	query := `
		INSERT INTO challenges (id, title, description, end_date, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			end_date = EXCLUDED.end_date,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, challenge.ID, challenge.Title, challenge.Description, endDate,
		challenge.Active, challenge.CreatedAt, challenge.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewEntityError("Save", "challenge", challenge.ID, persistence.ErrChallengeConflict)
		}

		return fmt.Errorf("failed to save challenge: %w", err)
	}

	return nil
}

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	var (
		challenge models.Challenge
		endDate   sql.NullTime
	)

	err := row.Scan(&challenge.ID, &challenge.Title, &challenge.Description, &endDate, &challenge.Active,
		&challenge.CreatedAt, &challenge.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		challenge.EndDate = endDate.Time
	}

	return &challenge, nil
}
