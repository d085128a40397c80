package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/incaya/farmbot-school-backend/pkg/models"
)

// DeviceTokenRepository keeps the singleton device token row.
type DeviceTokenRepository struct {
	db *sql.DB
}

// NewDeviceTokenRepository creates a new device token repository.
func NewDeviceTokenRepository(db *sql.DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// Get returns the stored token, or nil when the table is empty.
func (r *DeviceTokenRepository) Get(ctx context.Context) (*models.DeviceToken, error) {
	var token models.DeviceToken

	err := r.db.QueryRowContext(ctx, "SELECT token, token_expires_at FROM device_tokens LIMIT 1").
		Scan(&token.Token, &token.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan device token: %w", err)
	}

	return &token, nil
}

// Replace deletes every stored token and inserts the new one in a single transaction.
func (r *DeviceTokenRepository) Replace(ctx context.Context, token *models.DeviceToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "DELETE FROM device_tokens")
	if err != nil {
		return fmt.Errorf("failed to clear device tokens: %w", err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO device_tokens (token, token_expires_at) VALUES ($1, $2)",
		token.Token, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert device token: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit device token: %w", err)
	}

	return nil
}
