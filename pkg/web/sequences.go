package web

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/auth"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/services"
)

func (h *APIHandlers) GetSequences(c fiber.Ctx) error {
	caller, _ := identity(c)

	req, err := parseListSequencesRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	sequences, err := h.sequenceService.List(c.Context(), caller, *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ListSequencesResponse{
		Sequences:  sequences,
		Pagination: Pagination{Limit: req.Limit, Offset: req.Offset},
	})
}

func parseListSequencesRequest(c fiber.Ctx) (*services.ListSequencesRequest, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return nil, err
	}

	offset, err := queryInt(c, "offset")
	if err != nil {
		return nil, err
	}

	return &services.ListSequencesRequest{
		UserID:    c.Query("user_id"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (h *APIHandlers) CreateSequence(c fiber.Ctx) error {
	caller, _ := identity(c)

	var req CreateSequenceRequest

	err := h.decodeBody(c, models.SequenceSchema, &req)
	if err != nil {
		return handleBodyError(c, err)
	}

	created, err := h.sequenceService.Create(c.Context(), caller, services.CreateSequenceRequest{
		UserID:      req.UserID,
		ChallengeID: req.ChallengeID,
		Actions:     req.Actions,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetSequence(c fiber.Ctx) error {
	caller, _ := identity(c)

	sequence, err := h.sequenceService.FetchByID(c.Context(), caller, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(sequence)
}

func (h *APIHandlers) UpdateSequence(c fiber.Ctx) error {
	caller, _ := identity(c)

	var req UpdateSequenceRequest

	err := h.decodeBody(c, models.SequenceUpdateSchema, &req)
	if err != nil {
		return handleBodyError(c, err)
	}

	updated, err := h.sequenceService.Update(c.Context(), caller, c.Params("id"), services.UpdateSequenceRequest{
		ChallengeID: req.ChallengeID,
		Actions:     req.Actions,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

type transitionFunc func(ctx context.Context, caller auth.Identity, id string, actions *[]models.Action) (*models.Sequence, error)

func (h *APIHandlers) transition(c fiber.Ctx, send transitionFunc) error {
	caller, _ := identity(c)

	req, err := h.transitionBody(c)
	if err != nil {
		return handleBodyError(c, err)
	}

	sequence, err := send(c.Context(), caller, c.Params("id"), req.Actions)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(sequence)
}

// transitionBody decodes the optional body of a transition. An empty body keeps the stored actions.
func (h *APIHandlers) transitionBody(c fiber.Ctx) (*TransitionRequest, error) {
	req := &TransitionRequest{}
	if len(c.Body()) == 0 {
		return req, nil
	}

	err := h.decodeBody(c, models.Schema{}, req)
	if err != nil {
		return nil, err
	}

	return req, nil
}

// SendToWIP moves a sequence back to WIP.
func (h *APIHandlers) SendToWIP(c fiber.Ctx) error {
	return h.transition(c, h.sequenceService.SendToWIP)
}

// SendToProcess submits a sequence for review.
func (h *APIHandlers) SendToProcess(c fiber.Ctx) error {
	return h.transition(c, h.sequenceService.SendToProcess)
}

// SendProcessed marks a sequence as validated.
func (h *APIHandlers) SendProcessed(c fiber.Ctx) error {
	return h.transition(c, h.sequenceService.SendProcessed)
}

// SendToDevice compiles and uploads a sequence, answering with the sequence and the uploaded document.
func (h *APIHandlers) SendToDevice(c fiber.Ctx) error {
	caller, _ := identity(c)

	req, err := h.transitionBody(c)
	if err != nil {
		return handleBodyError(c, err)
	}

	dispatch, err := h.sequenceService.SendToDevice(c.Context(), caller, c.Params("id"), req.Actions)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DispatchResponse{Sequence: dispatch.Sequence, Celery: dispatch.Document})
}

func (h *APIHandlers) DeleteSequence(c fiber.Ctx) error {
	caller, _ := identity(c)

	result, err := h.sequenceService.Delete(c.Context(), caller, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) AddComment(c fiber.Ctx) error {
	caller, _ := identity(c)

	var req CommentRequest

	err := h.decodeBody(c, models.CommentSchema, &req)
	if err != nil {
		return handleBodyError(c, err)
	}

	comments, err := h.sequenceService.AddComment(c.Context(), caller, c.Params("id"), req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comments)
}
