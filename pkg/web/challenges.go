package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/services"
)

// GetChallenges lists challenges. The optional active query parameter filters on the active flag.
func (h *APIHandlers) GetChallenges(c fiber.Ctx) error {
	var active *bool

	if activeStr := c.Query("active"); activeStr != "" {
		value, err := strconv.ParseBool(activeStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		active = &value
	}

	challenges, err := h.challengeService.List(c.Context(), active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"challenges": challenges})
}

func (h *APIHandlers) GetChallenge(c fiber.Ctx) error {
	challenge, err := h.challengeService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(challenge)
}

func (h *APIHandlers) CreateChallenge(c fiber.Ctx) error {
	var req CreateChallengeRequest

	err := h.decodeBody(c, models.ChallengeSchema, &req)
	if err != nil {
		return handleBodyError(c, err)
	}

	created, err := h.challengeService.Create(c.Context(), services.CreateChallengeRequest{
		Title:       req.Title,
		Description: req.Description,
		EndDate:     req.EndDate,
		Active:      *req.Active,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}
