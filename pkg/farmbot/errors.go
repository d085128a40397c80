package farmbot

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceAuth is matched by every DeviceAuthError.
	ErrDeviceAuth = errors.New("unable to get farmbot api token")

	// ErrDeviceAPI is matched by every DeviceAPIError.
	ErrDeviceAPI = errors.New("farmbot api request failed")
)

// DeviceAuthError reports a failed authentication against the device API. Payload is the provider's
// decoded response body when one was received.
type DeviceAuthError struct {
	Status  int
	Payload any
	Err     error
}

func (e *DeviceAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrDeviceAuth, e.Err)
	}

	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d", ErrDeviceAuth, e.Status)
	}

	return ErrDeviceAuth.Error()
}

func (e *DeviceAuthError) Unwrap() error {
	return e.Err
}

func (e *DeviceAuthError) Is(target error) bool {
	return target == ErrDeviceAuth
}

// DeviceAPIError reports a transport failure, a non-2xx status or an unreadable body on a device call.
type DeviceAPIError struct {
	Op      string // list_pins, create_sequence, update_sequence, delete_sequence
	Status  int
	Payload any
	Err     error
}

func (e *DeviceAPIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("farmbot api %s failed: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("farmbot api %s failed with status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("farmbot api %s failed", e.Op)
	}
}

func (e *DeviceAPIError) Unwrap() error {
	return e.Err
}

func (e *DeviceAPIError) Is(target error) bool {
	return target == ErrDeviceAPI
}
