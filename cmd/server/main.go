// Package main provides the valuation API server entrypoint.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"auction-valuation/api"
	"auction-valuation/internal/app"
	"auction-valuation/internal/config"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Read()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read configuration")
	}

	core, err := app.Load(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load valuation core")
	}

	log.Info().
		Int("records", len(core.Records)).
		Int("makes", len(core.Catalogue.Makes())).
		Str("source", cfg.Data.Source).
		Msg("Valuation core loaded")

	serverCfg := api.DefaultConfig()
	serverCfg.Port = cfg.Server.Port
	serverCfg.LookbackDays = cfg.Query.LookbackDays
	serverCfg.RecentLimit = cfg.Query.RecentLimit

	server := api.NewServer(serverCfg, core.Records, core.Catalogue, core.Engine, core.Decoder, core.Assembler)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
