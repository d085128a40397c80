package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/incaya/farmbot-school-backend/pkg/models"
)

const deviceTokenFile = "device_token.json"

// DeviceTokenRepository keeps the singleton device token in a single file.
type DeviceTokenRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *DeviceTokenRepository) Get(_ context.Context) (*models.DeviceToken, error) {
	body, err := os.ReadFile(path.Join(r.root, deviceTokenFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read device token: %w", err)
	}

	var token models.DeviceToken

	err = json.Unmarshal(body, &token)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal device token: %w", err)
	}

	return &token, nil
}

// Replace swaps the stored token through a rename so the file is never half written.
func (r *DeviceTokenRepository) Replace(_ context.Context, token *models.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.MkdirAll(r.root, 0750)
	if err != nil {
		return fmt.Errorf("failed to create root directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal device token: %w", err)
	}

	target := path.Join(r.root, deviceTokenFile)
	tmp := target + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write device token: %w", err)
	}

	err = os.Rename(tmp, target)
	if err != nil {
		return fmt.Errorf("failed to replace device token: %w", err)
	}

	return nil
}
