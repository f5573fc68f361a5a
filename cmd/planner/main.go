package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/internal/bot"
	"github.com/freeeve/polite-betrayal/proai/internal/config"
	"github.com/freeeve/polite-betrayal/proai/internal/logger"
	"github.com/freeeve/polite-betrayal/proai/internal/setup"
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// planOutput is the printed form of a plan.
type planOutput struct {
	ID      string       `json:"id"`
	Player  string       `json:"player"`
	Round   int          `json:"round"`
	Targets []string     `json:"targets"`
	Moves   []moveOutput `json:"moves"`
}

type moveOutput struct {
	Kind      string   `json:"kind"`
	Target    string   `json:"target"`
	Units     []string `json:"units"`
	Route     []string `json:"route"`
	Transport string   `json:"transport,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "config file (default planner.yaml in . or ./config)")
	statePath := flag.String("state", "", "game snapshot JSON (default: built-in scenario)")
	player := flag.String("player", "germany", "player to plan for")
	execute := flag.Bool("execute", false, "apply the plan to the loaded state")
	flag.Parse()

	logger.Init()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gs, err := loadState(*statePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading game state failed")
	}

	var extra []bot.PlannerOption
	if *execute {
		extra = append(extra, bot.WithExecutor(wargame.NewLocalExecutor(gs)))
	}
	planner, cleanup, err := setup.Planner(cfg, extra...)
	if err != nil {
		log.Fatal().Err(err).Msg("Planner setup failed")
	}
	defer cleanup()

	plan, err := planner.Plan(ctx, gs, *player)
	if err != nil {
		log.Error().Err(err).Str("player", *player).Msg("Planning failed")
		cleanup()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toOutput(plan)); err != nil {
		log.Error().Err(err).Msg("Writing plan failed")
	}
}

func loadState(path string) (*wargame.GameState, error) {
	if path == "" {
		return wargame.StandardScenario(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return wargame.DecodeSnapshot(data)
}

func toOutput(p *bot.Plan) planOutput {
	out := planOutput{ID: p.ID, Player: p.Player, Round: p.Round, Targets: p.Targets()}
	for i, m := range p.Moves {
		mo := moveOutput{
			Kind:   string(m.Kind),
			Target: m.Target,
			Units:  wargame.UnitIDs(m.Units),
		}
		if m.Route != nil {
			mo.Route = m.Route.All()
		}
		if m.Transport != nil {
			mo.Transport = m.Transport.ID
		}
		if i < len(p.Results) && p.Results[i].Err != nil {
			mo.Error = p.Results[i].Err.Error()
		}
		out.Moves = append(out.Moves, mo)
	}
	return out
}
