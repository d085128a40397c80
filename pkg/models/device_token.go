package models

import "time"

// DeviceToken is the cached credential for the device API. At most one exists at a time.
type DeviceToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"token_expires_at"`
}

// ValidAt reports whether the token can still be used at now. Expiry is compared by calendar date in
// now's location: a token expiring today is still valid.
func (t *DeviceToken) ValidAt(now time.Time) bool {
	if t == nil || t.Token == "" {
		return false
	}

	ey, em, ed := t.ExpiresAt.In(now.Location()).Date()
	ny, nm, nd := now.Date()

	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	return !expiry.Before(today)
}
