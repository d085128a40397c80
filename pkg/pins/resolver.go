// Package pins resolves a logical action name (water, vacuum, humidity) to the live pin descriptor
// reported by the device.
package pins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/otelhelper"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// TokenProvider supplies a valid device token.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (*models.DeviceToken, error)
}

// DeviceLister lists the live pins of one material collection.
type DeviceLister interface {
	ListPins(ctx context.Context, token string, materialType models.MaterialType) ([]models.DevicePin, error)
}

// ResolvedPin is the device-side descriptor matched from a registry entry.
type ResolvedPin struct {
	ID           int
	Mode         int
	Label        string
	MaterialType models.MaterialType
}

// ResolutionError reports a registry or device mismatch with a stable code.
type ResolutionError struct {
	Code    string
	Message string
	Action  string
}

func (e *ResolutionError) Error() string {
	return e.Message
}

// NoActionPinCode is the code for an action missing from the registry.
func NoActionPinCode(action string) string {
	return "no_" + action + "_action_pin"
}

// NoDevicePinCode is the code for a registry entry with no matching live pin.
func NoDevicePinCode(action string) string {
	return "no_" + action + "_pin_on_farmbot"
}

// Resolver looks pins up in the registry then on the device. Each call makes one listing round trip.
type Resolver struct {
	registry persistence.PinRepository
	tokens   TokenProvider
	device   DeviceLister
	logger   *slog.Logger
}

func NewResolver(registry persistence.PinRepository, tokens TokenProvider, device DeviceLister, logger *slog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		tokens:   tokens,
		device:   device,
		logger:   logger.With("module", "pin_resolver"),
	}
}

// Resolve returns the live descriptor for action, read or written according to kind. Token and device
// failures propagate unchanged.
func (r *Resolver) Resolve(ctx context.Context, action string, kind models.PinKind) (resolved *ResolvedPin, err error) {
	ctx, span := otelhelper.StartSpan(ctx, "pins.resolve",
		attribute.String(otelhelper.PinActionKey, action),
		attribute.String(otelhelper.PinKindKey, string(kind)))
	defer func() {
		_ = otelhelper.SetError(span, err)

		span.End()
	}()

	entry, err := r.registry.GetByAction(ctx, action)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, &ResolutionError{
				Code:    NoActionPinCode(action),
				Message: "Please verify you correctly configure action " + action,
				Action:  action,
			}
		}

		return nil, fmt.Errorf("failed to look up pin for %s: %w", action, err)
	}

	token, err := r.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	devicePins, err := r.device.ListPins(ctx, token.Token, entry.MaterialType)
	if err != nil {
		return nil, err
	}

	for _, pin := range devicePins {
		if pin.Pin == entry.MaterialID {
			return &ResolvedPin{ID: pin.ID, Mode: pin.Mode, Label: pin.Label, MaterialType: entry.MaterialType}, nil
		}
	}

	r.logger.WarnContext(ctx, "registered pin not found on device", "action", action, "material_id", entry.MaterialID)

	return nil, &ResolutionError{
		Code:    NoDevicePinCode(action),
		Message: fmt.Sprintf("Please verify you correctly configure on farmbot pin with number %d", entry.MaterialID),
		Action:  action,
	}
}
