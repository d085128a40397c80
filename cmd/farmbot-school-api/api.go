package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/incaya/farmbot-school-backend/pkg/compiler"
	"github.com/incaya/farmbot-school-backend/pkg/eventbus"
	"github.com/incaya/farmbot-school-backend/pkg/events"
	"github.com/incaya/farmbot-school-backend/pkg/farmbot"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
	"github.com/incaya/farmbot-school-backend/pkg/pins"
	"github.com/incaya/farmbot-school-backend/pkg/services"
	"github.com/incaya/farmbot-school-backend/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	tokens      *farmbot.TokenCache
	device      *farmbot.Client
	eventBus    eventbus.EventBus
	jwtSecret   string
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	tokens *farmbot.TokenCache,
	device *farmbot.Client,
	eventBus eventbus.EventBus,
	jwtSecret string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		tokens:      tokens,
		device:      device,
		eventBus:    eventBus,
		jwtSecret:   jwtSecret,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	resolver := pins.NewResolver(a.persistence.Pins(), a.tokens, a.device, a.logger)
	sequenceService := services.NewSequence(
		a.persistence,
		compiler.New(resolver, a.logger),
		a.tokens,
		a.device,
		a.eventBus,
		a.logger,
	)

	handlers := web.NewAPIHandlers(
		sequenceService,
		services.NewPin(a.persistence, a.logger),
		services.NewChallenge(a.persistence, a.logger),
		services.NewDevice(a.tokens, a.logger),
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := sequenceService.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FarmBot School API")
	})

	app.Get("/health", handlers.HealthCheck)

	web.Mount(app, handlers, a.jwtSecret)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

// SubscribeEventLog logs every lifecycle event received from the bus.
func (a *API) SubscribeEventLog(ctx context.Context) error {
	logEvent := func(ctx context.Context, event any) error {
		a.logger.InfoContext(ctx, "sequence lifecycle event", "event", event)

		return nil
	}

	for _, eventType := range []events.EventType{
		events.SequenceStatusChangedEvent,
		events.SequenceDispatchedEvent,
		events.SequenceDeletedEvent,
	} {
		err := a.eventBus.Handle(eventType, logEvent)
		if err != nil {
			return fmt.Errorf("failed to register %s handler: %w", eventType, err)
		}
	}

	return a.eventBus.Subscribe(ctx)
}
