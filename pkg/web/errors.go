package web

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/compiler"
	"github.com/incaya/farmbot-school-backend/pkg/farmbot"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
	"github.com/incaya/farmbot-school-backend/pkg/services"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func unauthorized(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusUnauthorized, "unauthorized", detail)
}

func forbidden(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusForbidden, "forbidden", detail)
}

// handleServiceError maps service, compile and device errors to problem responses. Persistence details
// never reach the client.
func handleServiceError(c fiber.Ctx, err error) error {
	var (
		serviceErr    *services.ServiceError
		compileErr    *compiler.CompileError
		resolutionErr *pins.ResolutionError
		authErr       *farmbot.DeviceAuthError
		apiErr        *farmbot.DeviceAPIError
	)

	switch {
	case errors.As(err, &authErr):
		return deviceProblem(c, "device_auth_error", err.Error(), authErr.Payload)

	case errors.As(err, &apiErr):
		return deviceProblem(c, "device_api_error", err.Error(), apiErr.Payload)

	case errors.As(err, &compileErr):
		return problem(c, fiber.StatusBadRequest, compileErr.Code, compileErr.Message)

	case errors.As(err, &resolutionErr):
		return problem(c, fiber.StatusBadRequest, resolutionErr.Code, resolutionErr.Message)

	case errors.Is(err, models.ErrInvalidFields):
		return badRequest(c, err.Error())

	case services.IsValidationError(err):
		detail := err.Error()
		if errors.As(err, &serviceErr) {
			detail = serviceErr.Message
		}

		return badRequest(c, detail)

	case services.IsNotFoundError(err):
		return problem(c, fiber.StatusNotFound, "not_found", "resource not found")

	case errors.Is(err, services.ErrForbidden):
		return forbidden(c, err.Error())

	case services.IsConflictError(err):
		detail := err.Error()
		if errors.As(err, &serviceErr) {
			detail = serviceErr.Message
		}

		return problem(c, fiber.StatusConflict, "conflict", detail)

	default:
		slog.ErrorContext(c.Context(), "request failed", "path", c.Path(), "error", err)

		return problem(c, fiber.StatusInternalServerError, "internal_error", "internal error")
	}
}

// deviceProblem reports a device failure as 502 with the provider payload, when one was returned.
func deviceProblem(c fiber.Ctx, problemType, detail string, payload any) error {
	p := problems.NewStatusProblem(fiber.StatusBadGateway).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	if payload == nil {
		return c.Status(fiber.StatusBadGateway).JSON(p)
	}

	return c.Status(fiber.StatusBadGateway).JSON(problems.Extend(p, deviceProblemPayload{Payload: payload}))
}

type deviceProblemPayload struct {
	Payload any `json:"payload"`
}
