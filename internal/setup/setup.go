// Package setup wires a planner from configuration.
package setup

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/internal/bot"
	"github.com/freeeve/polite-betrayal/proai/internal/bot/neural"
	"github.com/freeeve/polite-betrayal/proai/internal/config"
	"github.com/freeeve/polite-betrayal/proai/internal/repository/postgres"
	redisrepo "github.com/freeeve/polite-betrayal/proai/internal/repository/redis"
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// Planner builds a planner backed by the dice oracle, plus the options
// derived from cfg. The returned cleanup closes any storage connections.
// Storage that is configured but unreachable is an error.
func Planner(cfg *config.Config, extra ...bot.PlannerOption) (*bot.Planner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Planner.Seed != 0 {
		wargame.SeedOracleRng(cfg.Planner.Seed)
	}

	oddsOpts := []bot.OddsOption{
		bot.WithStrengthEstimator(neural.NewStrengthEstimator(cfg.Model.Path)),
		bot.WithOracleTimeout(cfg.Planner.OracleTimeout),
	}
	opts := []bot.PlannerOption{
		bot.WithWorkers(cfg.Planner.Workers),
		bot.WithMaxTargets(cfg.Planner.MaxTargets),
		bot.WithEnemyBonusRange(cfg.Planner.EnemyBonusRange),
		bot.WithThresholds(Thresholds(cfg)),
		bot.WithScramble(bot.ScrambleRules{
			Enabled:        cfg.Scramble.Enabled,
			FromIslandOnly: cfg.Scramble.FromIslandOnly,
			ToSeaOnly:      cfg.Scramble.ToSeaOnly,
		}),
	}

	if cfg.Storage.RedisURL != "" {
		rc, err := redisrepo.NewClient(cfg.Storage.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("odds cache: %w", err)
		}
		closers = append(closers, func() { rc.Close() })
		oddsOpts = append(oddsOpts, bot.WithOddsCache(redisrepo.NewOddsCache(rc, cfg.Storage.OddsTTL)))
		log.Info().Dur("ttl", cfg.Storage.OddsTTL).Msg("Odds cache enabled")
	}

	if cfg.Storage.DatabaseURL != "" {
		db, err := postgres.Connect(cfg.Storage.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("plan journal: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		opts = append(opts, bot.WithRepository(postgres.NewPlanRepo(db), cfg.Server.GameID))
		log.Info().Msg("Plan journal enabled")
	}

	opts = append(opts, bot.WithOddsOptions(oddsOpts...))
	opts = append(opts, extra...)
	return bot.NewPlanner(wargame.NewDiceCalculator(), opts...), cleanup, nil
}

// Thresholds converts the configured win percentages for dice and low luck
// games.
func Thresholds(cfg *config.Config) (dice, lowLuck bot.Thresholds) {
	d, l := cfg.Planner.Dice, cfg.Planner.LowLuck
	return bot.Thresholds{Win: d.Win, MinWin: d.MinWin}, bot.Thresholds{Win: l.Win, MinWin: l.MinWin}
}
