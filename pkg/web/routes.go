package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/models"
)

// Mount registers every authenticated route on router. Admin-only routes are guarded by RequireRole. Route
// middleware is passed after the handler since fiber runs the handler argument last.
func Mount(router fiber.Router, h *APIHandlers, secret string) {
	admin := RequireRole(models.RoleAdmin)

	s := router.Group("/sequences", RequireAuth(secret))
	s.Get("/", h.GetSequences)
	s.Post("/", h.CreateSequence)
	s.Get("/:id", h.GetSequence)
	s.Put("/:id", h.UpdateSequence)
	s.Delete("/:id", h.DeleteSequence, admin)
	s.Put("/:id/wip", h.SendToWIP)
	s.Put("/:id/to-process", h.SendToProcess)
	s.Put("/:id/process-wip", h.SendToDevice)
	s.Put("/:id/processed", h.SendProcessed)
	s.Post("/:id/comments", h.AddComment)

	p := router.Group("/pins", RequireAuth(secret), admin)
	p.Get("/", h.GetPins)
	p.Post("/", h.CreatePin)
	p.Get("/:id", h.GetPin)
	p.Put("/:id", h.UpdatePin)
	p.Delete("/:id", h.DeletePin)

	c := router.Group("/challenges", RequireAuth(secret))
	c.Get("/", h.GetChallenges)
	c.Post("/", h.CreateChallenge, admin)
	c.Get("/:id", h.GetChallenge)

	router.Post("/farmbot/token", h.RefreshDeviceToken, RequireAuth(secret), admin)
}
