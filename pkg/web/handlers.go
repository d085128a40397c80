// Package web provides the HTTP handlers of the sequence, pin registry, challenge and device endpoints.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/services"
)

var errInvalidJSON = errors.New("invalid JSON format")

type APIHandlers struct {
	sequenceService  *services.Sequence
	pinService       *services.Pin
	challengeService *services.Challenge
	deviceService    *services.Device
	validator        *validator.Validate
}

func NewAPIHandlers(
	sequenceService *services.Sequence,
	pinService *services.Pin,
	challengeService *services.Challenge,
	deviceService *services.Device,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		sequenceService:  sequenceService,
		pinService:       pinService,
		challengeService: challengeService,
		deviceService:    deviceService,
		validator:        validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.sequenceService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "FarmBot School API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "FarmBot School API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// decodeBody checks the raw payload against schema (and the actions list against its JSON schema when
// present), then binds and validates it into dst.
func (h *APIHandlers) decodeBody(c fiber.Ctx, schema models.Schema, dst any) error {
	var raw map[string]any

	err := json.Unmarshal(c.Body(), &raw)
	if err != nil {
		return errInvalidJSON
	}

	err = schema.Check(raw)
	if err != nil {
		return err
	}

	if actions, ok := raw["actions"]; ok {
		err = models.ValidateActions(actions)
		if err != nil {
			return err
		}
	}

	err = c.Bind().JSON(dst)
	if err != nil {
		return errInvalidJSON
	}

	return h.validator.Struct(dst)
}

func queryInt(c fiber.Ctx, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, nil
	}

	return strconv.Atoi(value)
}

// handleBodyError answers 400 for an unreadable, incomplete or invalid request body.
func handleBodyError(c fiber.Ctx, err error) error {
	return badRequest(c, err.Error())
}
