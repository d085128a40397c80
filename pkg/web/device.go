package web

import "github.com/gofiber/fiber/v3"

// RefreshDeviceToken returns a valid device token, authenticating only if the cached one expired.
func (h *APIHandlers) RefreshDeviceToken(c fiber.Ctx) error {
	token, err := h.deviceService.Token(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DeviceTokenResponse{Token: token.Token, ExpiresAt: token.ExpiresAt})
}
