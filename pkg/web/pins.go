package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/services"
)

func (h *APIHandlers) GetPins(c fiber.Ctx) error {
	pins, err := h.pinService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"pins": pins})
}

func (h *APIHandlers) GetPin(c fiber.Ctx) error {
	pin, err := h.pinService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(pin)
}

func (h *APIHandlers) CreatePin(c fiber.Ctx) error {
	req, err := h.pinRequest(c)
	if err != nil {
		return handleBodyError(c, err)
	}

	created, err := h.pinService.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdatePin(c fiber.Ctx) error {
	req, err := h.pinRequest(c)
	if err != nil {
		return handleBodyError(c, err)
	}

	updated, err := h.pinService.Update(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeletePin(c fiber.Ctx) error {
	err := h.pinService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) pinRequest(c fiber.Ctx) (services.PinRequest, error) {
	var req PinRequest

	err := h.decodeBody(c, models.PinSchema, &req)
	if err != nil {
		return services.PinRequest{}, err
	}

	return services.PinRequest{
		MaterialType: models.MaterialType(req.MaterialType),
		MaterialID:   *req.MaterialID,
		Action:       req.Action,
	}, nil
}
