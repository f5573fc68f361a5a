package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// PhaseCombatMove is the phase name the runner plans for.
const PhaseCombatMove = "combat_move"

// Runner plays one player's combat moves in a remote game until it ends.
type Runner struct {
	client       *Client
	planner      *Planner
	player       string
	phaseTimeout time.Duration
}

// NewRunner creates a runner for player. The planner should not carry its
// own executor; moves are sent through client.
func NewRunner(client *Client, planner *Planner, player string) *Runner {
	return &Runner{
		client:       client,
		planner:      planner,
		player:       player,
		phaseTimeout: 10 * time.Minute,
	}
}

// WithPhaseTimeout bounds the wait for the next phase event.
func (r *Runner) WithPhaseTimeout(d time.Duration) *Runner {
	r.phaseTimeout = d
	return r
}

// Run connects to the game and plays every combat move phase for the
// runner's player until the game ends or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	log.Info().Str("gameId", r.client.GameID()).Str("player", r.player).Msg("Starting bot")

	if err := r.client.ConnectWS(ctx); err != nil {
		return fmt.Errorf("ws connect: %w", err)
	}
	defer r.client.CloseWS()
	if err := r.client.Subscribe(); err != nil {
		return fmt.Errorf("ws subscribe: %w", err)
	}

	phase, err := r.client.CurrentPhase(ctx)
	if err != nil {
		return fmt.Errorf("get current phase: %w", err)
	}
	return r.playLoop(ctx, phase)
}

func (r *Runner) playLoop(ctx context.Context, phase Phase) error {
	for {
		if phase.Name == PhaseCombatMove && phase.Player == r.player {
			if err := r.playTurn(ctx); err != nil {
				return err
			}
		}

		event, err := r.waitForEvent(ctx, "phase_changed", "game_ended")
		if err != nil {
			return fmt.Errorf("wait for event: %w", err)
		}
		if event.Type == "game_ended" {
			winner, _ := event.Data["winner"].(string)
			log.Info().Str("winner", winner).Msg("Game ended")
			return nil
		}
		phase = PhaseFromEvent(event)
		log.Debug().Str("phase", phase.Name).Str("player", phase.Player).Int("round", phase.Round).Msg("Phase changed")
	}
}

// playTurn plans and executes one combat move. A failed plan is logged and
// the phase is still ended so the game can go on.
func (r *Runner) playTurn(ctx context.Context) error {
	gs, err := r.client.State(ctx)
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}
	plan, err := r.planner.Plan(ctx, gs, r.player)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("player", r.player).Msg("Planning failed, ending phase without attacks")
	} else if err := r.planner.Execute(ctx, plan, r.client); err != nil {
		return err
	}
	if err := r.client.EndPhase(ctx); err != nil {
		log.Warn().Err(err).Str("player", r.player).Msg("End phase failed")
	}
	return nil
}

// waitForEvent blocks until one of the given event types is received or context cancels.
func (r *Runner) waitForEvent(ctx context.Context, eventTypes ...string) (WSEvent, error) {
	typeSet := make(map[string]bool)
	for _, t := range eventTypes {
		typeSet[t] = true
	}

	timeout := time.After(r.phaseTimeout)
	for {
		select {
		case <-ctx.Done():
			return WSEvent{}, ctx.Err()
		case <-timeout:
			return WSEvent{}, fmt.Errorf("timeout waiting for events %v", eventTypes)
		case event, ok := <-r.client.Events():
			if !ok {
				return WSEvent{}, fmt.Errorf("ws connection closed")
			}
			if typeSet[event.Type] {
				return event, nil
			}
			log.Debug().Str("type", event.Type).Msg("Ignoring event")
		}
	}
}
