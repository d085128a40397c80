// Package postgresql provides PostgreSQL persistence for sequences, the pin registry, challenges, users
// and the device token.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"github.com/incaya/farmbot-school-backend/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	sequenceRepo  *SequenceRepository
	pinRepo       *PinRepository
	challengeRepo *ChallengeRepository
	userRepo      *UserRepository
	tokenRepo     *DeviceTokenRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:            database,
		logger:        logger,
		sequenceRepo:  NewSequenceRepository(database, logger),
		pinRepo:       NewPinRepository(database, logger),
		challengeRepo: NewChallengeRepository(database, logger),
		userRepo:      NewUserRepository(database),
		tokenRepo:     NewDeviceTokenRepository(database),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Sequences() persistence.SequenceRepository   { return p.sequenceRepo }
func (p *Persistence) Pins() persistence.PinRepository             { return p.pinRepo }
func (p *Persistence) Challenges() persistence.ChallengeRepository { return p.challengeRepo }
func (p *Persistence) Users() persistence.UserRepository           { return p.userRepo }
func (p *Persistence) DeviceTokens() persistence.TokenStore        { return p.tokenRepo }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
