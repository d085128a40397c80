package main

import (
	"context"
	"fmt"
	"time"

	"github.com/incaya/farmbot-school-backend/pkg/cmd"
	"github.com/incaya/farmbot-school-backend/pkg/farmbot"
	"github.com/incaya/farmbot-school-backend/pkg/log"
	"github.com/incaya/farmbot-school-backend/pkg/otelhelper"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort        = 5000
	defaultFarmbotURL  = "https://my.farmbot.io/api"
	defaultTokenTTL    = 24 * time.Hour
	defaultEventBus    = "gochannel"
	defaultTokenStore  = ""
	defaultKafkaBroker = "localhost:9092"
)

func RunAPICommand() *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		databaseURLFlag(),
		&cli.StringFlag{
			Name:    "token-store",
			Usage:   "Where the device token is cached: empty for the database, or redis://...",
			Value:   defaultTokenStore,
			Sources: cli.EnvVars("TOKEN_STORE_URL"),
		},
		&cli.StringFlag{
			Name:    "farmbot-api-url",
			Usage:   "Base URL of the FarmBot web API",
			Value:   defaultFarmbotURL,
			Sources: cli.EnvVars("FARMBOT_API_URL"),
		},
		&cli.StringFlag{
			Name:     "farmbot-api-email",
			Usage:    "FarmBot account email",
			Required: true,
			Sources:  cli.EnvVars("FARMBOT_API_EMAIL"),
		},
		&cli.StringFlag{
			Name:     "farmbot-api-password",
			Usage:    "FarmBot account password",
			Required: true,
			Sources:  cli.EnvVars("FARMBOT_API_PASSWORD"),
		},
		&cli.DurationFlag{
			Name:    "farmbot-api-timeout",
			Usage:   "Timeout of one FarmBot API round trip",
			Value:   farmbot.DefaultTimeout,
			Sources: cli.EnvVars("FARMBOT_API_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   defaultEventBus,
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers, used with --event-bus kafka",
			Value:   defaultKafkaBroker,
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP (configured by OTEL_EXPORTER_OTLP_* variables)",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}

	flags = append(flags, jwtFlags()...)
	flags = append(flags, logFlags()...)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start api",
		Flags:   flags,
		Action:  runAPI,
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing FarmBot School API")

	if command.Bool("otel") {
		tracerProvider, err := otelhelper.NewTracerProvider(ctx, serviceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			err := tracerProvider.Shutdown(context.Background())
			if err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	tokenStore, closeTokenStore, err := cmd.NewTokenStore(ctx, logger, command.String("token-store"), persistence)
	if err != nil {
		return err
	}

	defer func() {
		err := closeTokenStore()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close token store", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	client := farmbot.NewClient(farmbot.Config{
		BaseURL:  command.String("farmbot-api-url"),
		Email:    command.String("farmbot-api-email"),
		Password: command.String("farmbot-api-password"),
		Timeout:  command.Duration("farmbot-api-timeout"),
	}, logger)

	api := NewAPI(
		logger,
		persistence,
		farmbot.NewTokenCache(tokenStore, client, logger),
		client,
		eventBus,
		command.String("jwt-secret-key"),
	)

	err = api.SubscribeEventLog(ctx)
	if err != nil {
		return err
	}

	err = api.Start(command.Int("port"))
	if err != nil {
		logger.ErrorContext(ctx, "API server stopped", "error", err)

		return err
	}

	return nil
}
