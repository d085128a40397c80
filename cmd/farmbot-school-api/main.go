// Package main provides the FarmBot School API server.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

const serviceName = "farmbot-school-api"

func main() {
	cmd := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Author, review and send FarmBot sequences",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			CreateUserCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence (postgres://... or file://<dir>)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

func jwtFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "jwt-secret-key",
			Usage:    "HS256 secret used to sign and verify bearer tokens",
			Required: true,
			Sources:  cli.EnvVars("JWT_SECRET_KEY"),
		},
		&cli.DurationFlag{
			Name:    "jwt-expiration-time",
			Usage:   "Lifetime of issued bearer tokens",
			Value:   defaultTokenTTL,
			Sources: cli.EnvVars("JWT_EXPIRATION_TIME"),
		},
	}
}
