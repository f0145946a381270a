// migrate applies the embedded schema for the sessions and trial_usage tables.
package main

import (
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"lexgate/backend/internal/config"
	"lexgate/backend/internal/db/migrate"
	"lexgate/backend/internal/logger"
)

var cli struct {
	Direction   string `help:"Migration direction." enum:"up,down" default:"up"`
	DatabaseURL string `help:"Postgres DSN; defaults to DATABASE_URL from the environment." name:"database-url"`
}

func main() {
	kctx := kong.Parse(&cli, kong.Description("Apply lexgate database migrations."))

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	logger.Setup(cfg.LogLevel, !cfg.Production())

	dsn := cli.DatabaseURL
	if dsn == "" {
		dsn = cfg.DatabaseURL
	}
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env or pass --database-url")
	}

	if err := migrate.Run(dsn, cli.Direction); err != nil {
		log.Fatal().Err(err).Str("direction", cli.Direction).Msg("migrate")
	}
	log.Info().Str("direction", cli.Direction).Msg("migrations applied")
}
