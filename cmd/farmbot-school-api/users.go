package main

import (
	"context"
	"fmt"

	"github.com/incaya/farmbot-school-backend/pkg/auth"
	"github.com/incaya/farmbot-school-backend/pkg/cmd"
	"github.com/incaya/farmbot-school-backend/pkg/log"
	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/services"
	"github.com/urfave/cli/v3"
)

// CreateUserCommand bootstraps an account and prints a bearer token for it.
func CreateUserCommand() *cli.Command {
	flags := []cli.Flag{
		databaseURLFlag(),
		&cli.StringFlag{
			Name:     "pseudo",
			Usage:    "Public name, used in comments and sequence names",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "email",
			Required: true,
		},
		&cli.StringFlag{
			Name: "name",
		},
		&cli.StringFlag{
			Name:  "role",
			Usage: "ADMIN or USER",
			Value: string(models.RoleAdmin),
		},
	}

	flags = append(flags, jwtFlags()...)
	flags = append(flags, logFlags()...)

	return &cli.Command{
		Name:   "create-user",
		Usage:  "Create a user and print a bearer token for it",
		Flags:  flags,
		Action: createUser,
	}
}

func createUser(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("create-user")

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

	user, err := services.NewUser(persistence, logger).Create(ctx, services.CreateUserRequest{
		Pseudo: command.String("pseudo"),
		Name:   command.String("name"),
		Email:  command.String("email"),
		Role:   models.Role(command.String("role")),
	})
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken(user, command.String("jwt-secret-key"), command.Duration("jwt-expiration-time"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(command.Root().Writer, "user_id: %s\ntoken: %s\n", user.ID, token)

	return err
}
