package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/config"
	"github.com/Burnwood-ccdocs/consolidator-app/internal/consolidate"
	"github.com/Burnwood-ccdocs/consolidator-app/internal/logging"
	"github.com/Burnwood-ccdocs/consolidator-app/internal/server"
	"github.com/Burnwood-ccdocs/consolidator-app/internal/sheets"
)

func main() {
	log := logging.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfgPath).Msg("could not load config file, falling back to environment")
		cfg = config.FromEnv()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	svc, err := sheets.NewGoogleService(ctx, cfg.Google.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sheets client")
	}

	engine := consolidate.New(svc, cfg, log)

	if cfg.Server.Addr != "" {
		srv := server.NewServer(engine, log)
		srv.Start(cfg.Server.Addr)
		log.Info().Str("addr", cfg.Server.Addr).Msg("status server listening")
	}

	sched := consolidate.NewScheduler(engine, cfg.IdleInterval(), cfg.RetryInterval(), log)
	log.Info().
		Str("master", cfg.Master.SpreadsheetID).
		Str("destination", cfg.Destination.SpreadsheetID).
		Msg("consolidator started")
	sched.Run(ctx)
}
