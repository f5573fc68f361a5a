package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/internal/auth"
	"github.com/freeeve/polite-betrayal/proai/internal/bot"
	"github.com/freeeve/polite-betrayal/proai/internal/config"
	"github.com/freeeve/polite-betrayal/proai/internal/logger"
	"github.com/freeeve/polite-betrayal/proai/internal/setup"
)

func main() {
	configPath := flag.String("config", "", "config file (default planner.yaml in . or ./config)")
	url := flag.String("url", "", "server base URL (overrides server.url)")
	gameID := flag.String("game", "", "game ID (overrides server.game_id)")
	player := flag.String("player", "", "player to control (overrides server.player)")
	phaseTimeout := flag.Duration("phase-timeout", 10*time.Minute, "max wait for the next phase")
	flag.Parse()

	logger.Init()
	loader, err := config.NewLoader(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	cfg := loader.Config()
	if *url != "" {
		cfg.Server.URL = *url
	}
	if *gameID != "" {
		cfg.Server.GameID = *gameID
	}
	if *player != "" {
		cfg.Server.Player = *player
	}
	if cfg.Server.GameID == "" || cfg.Server.Player == "" {
		log.Fatal().Msg("A game ID and a player are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds := auth.Credentials{
		JWTSecret:    cfg.Auth.JWTSecret,
		UserID:       cfg.Auth.UserID,
		TokenURL:     cfg.Auth.TokenURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Scopes:       cfg.Auth.Scopes,
	}
	tokens, err := creds.TokenSource(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Auth setup failed")
	}

	planner, cleanup, err := setup.Planner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Planner setup failed")
	}
	defer cleanup()

	if loader.FilePath() != "" {
		loader.Watch(func(c *config.Config) {
			planner.SetThresholds(setup.Thresholds(c))
		})
	}

	client := bot.NewClient(ctx, cfg.Server.URL, cfg.Server.GameID, tokens)
	runner := bot.NewRunner(client, planner, cfg.Server.Player).WithPhaseTimeout(*phaseTimeout)
	if err := runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Bot stopped")
		return
	}
	log.Info().Msg("Bot game completed successfully")
}
