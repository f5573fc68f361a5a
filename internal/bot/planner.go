package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/polite-betrayal/proai/internal/logger"
	"github.com/freeeve/polite-betrayal/proai/internal/model"
	"github.com/freeeve/polite-betrayal/proai/internal/repository"
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// ErrUnknownPlayer is returned when the player is not seated in the game.
var ErrUnknownPlayer = errors.New("unknown player")

// Plan is the outcome of one combat-move planning pass.
type Plan struct {
	ID      string
	Player  string
	Round   int
	Attacks []*AttackPackage
	Moves   []MoveInstruction
	Results []MoveResult // set once executed

	moveIDs []string
}

// Targets returns the attacked territories in priority order.
func (p *Plan) Targets() []string {
	out := make([]string, len(p.Attacks))
	for i, a := range p.Attacks {
		out[i] = a.Target
	}
	return out
}

// Failed returns the number of moves that did not execute.
func (p *Plan) Failed() int {
	n := 0
	for _, r := range p.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Planner decides which territories to attack this turn and with what.
type Planner struct {
	oracle     Oracle
	oddsOpts   []OddsOption
	scramble   ScrambleRules
	workers    int
	maxTargets int
	bonusRange int
	gameID     string
	repo       repository.PlanRepository
	executor   Executor

	mu      sync.RWMutex
	dice    *Thresholds
	lowLuck *Thresholds
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithWorkers bounds the concurrent battle estimates of the pruner.
func WithWorkers(n int) PlannerOption {
	return func(p *Planner) { p.workers = max(n, 1) }
}

// WithThresholds overrides the default win percentages.
func WithThresholds(dice, lowLuck Thresholds) PlannerOption {
	return func(p *Planner) { p.dice, p.lowLuck = &dice, &lowLuck }
}

// WithScramble sets the scramble rules of the game.
func WithScramble(r ScrambleRules) PlannerOption {
	return func(p *Planner) { p.scramble = r }
}

// WithMaxTargets caps the number of prioritized targets. 0 means no cap.
func WithMaxTargets(n int) PlannerOption {
	return func(p *Planner) { p.maxTargets = max(n, 0) }
}

// WithEnemyBonusRange extends enemy movement when looking for
// counter-attacks.
func WithEnemyBonusRange(n int) PlannerOption {
	return func(p *Planner) { p.bonusRange = max(n, 0) }
}

// WithOddsOptions configures the odds adapter built for each pass.
func WithOddsOptions(opts ...OddsOption) PlannerOption {
	return func(p *Planner) { p.oddsOpts = append(p.oddsOpts, opts...) }
}

// WithRepository journals every plan and its execution results.
func WithRepository(repo repository.PlanRepository, gameID string) PlannerOption {
	return func(p *Planner) { p.repo, p.gameID = repo, gameID }
}

// WithExecutor executes every plan right after it is made.
func WithExecutor(ex Executor) PlannerOption {
	return func(p *Planner) { p.executor = ex }
}

// NewPlanner returns a planner that estimates battles with oracle.
func NewPlanner(oracle Oracle, opts ...PlannerOption) *Planner {
	p := &Planner{oracle: oracle, workers: 1, bonusRange: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetThresholds replaces the win percentages used by later passes.
func (pl *Planner) SetThresholds(dice, lowLuck Thresholds) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.dice, pl.lowLuck = &dice, &lowLuck
}

func (pl *Planner) thresholds(lowLuck bool) Thresholds {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	switch {
	case lowLuck && pl.lowLuck != nil:
		return *pl.lowLuck
	case !lowLuck && pl.dice != nil:
		return *pl.dice
	}
	return DefaultThresholds(lowLuck)
}

// Plan runs one combat-move pass for player on a copy of gs. When an
// executor is configured the moves are executed against it.
func (pl *Planner) Plan(ctx context.Context, gs *wargame.GameState, player string) (*Plan, error) {
	if gs.Players[player] == nil {
		return nil, fmt.Errorf("plan for %s: %w", player, ErrUnknownPlayer)
	}
	state := gs.Clone()
	plan := &Plan{ID: logger.NewPlanID(), Player: player, Round: state.Round}
	ctx = logger.WithPlanID(ctx, plan.ID)
	lg := logger.ForPlan(ctx)
	start := time.Now()

	th := pl.thresholds(state.LowLuck)
	odds := NewOdds(state, pl.oracle, pl.oddsOpts...)

	agg := pl.findAttackOptions(state, player, odds)
	targets := NewTerritorySet(agg.Targets()...)
	enemies := FindOtherOptions(state, state.Enemies(player), IsPassable(), pl.bonusRange)
	allies := FindOtherOptions(state, state.Allies(player), func(t *wargame.Territory) bool { return targets.Has(t.ID) }, 0)
	lg.Debug().Int("targets", len(targets)).Int("units", len(agg.UnitIndex)).Msg("Found attack options")

	kept, removed := NewPruner(state, player, odds, th, allies, enemies).WithWorkers(pl.workers).Prune(ctx, agg.Packages())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range removed {
		agg.Remove(p.Target)
	}

	cleared := make(TerritorySet, len(kept))
	check := make([]string, 0, len(kept))
	for _, p := range kept {
		cleared.Add(p.Target)
		check = append(check, p.Target)
	}
	seen := NewTerritorySet(check...)
	for _, u := range agg.UnitIndex.Units() {
		if loc := state.LocationOf(u); !seen.Has(loc) {
			seen.Add(loc)
			check = append(check, loc)
		}
	}
	values := FindTerritoryValues(state, player, NewTerritorySet(), cleared, check)
	determineCanHold(ctx, state, player, odds, th, kept, enemies, values)

	candidates := prioritize(state, player, odds, kept)
	worth := candidates[:0:0]
	for _, p := range candidates {
		if worthAttacking(state, player, odds, enemies, p) {
			worth = append(worth, p)
		}
	}
	prioritized := topTargets(worth, pl.maxTargets)

	attacks, err := newAssigner(state, player, odds, th, agg, enemies).determineTargets(ctx, prioritized)
	if err != nil {
		return nil, fmt.Errorf("assign units: %w", err)
	}
	plan.Attacks = attacks
	plan.Moves = NewEmitter(state, player, agg).Emit(attacks)

	lg.Info().
		Str("player", player).
		Int("round", plan.Round).
		Strs("targets", plan.Targets()).
		Int("moves", len(plan.Moves)).
		Int("pruned", len(removed)).
		Dur("elapsed", time.Since(start)).
		Msg("Combat move planned")

	pl.journal(ctx, plan)
	if pl.executor != nil {
		if err := pl.Execute(ctx, plan, pl.executor); err != nil {
			return plan, err
		}
	}
	return plan, nil
}

// findAttackOptions aggregates every unit that could join an attack this
// turn: land, sea and air moves, amphibious landings, bombardment and the
// enemy air that could scramble against them.
func (pl *Planner) findAttackOptions(gs *wargame.GameState, player string, odds *Odds) *Aggregator {
	f := NewOptionFinder(gs, player, true)
	origins := f.Origins()
	target := IsEnemyOrCantHold(gs, player, nil)

	agg := NewAggregator()
	land := f.Land(origins, target)
	agg.Merge(land)
	agg.Merge(f.Naval(origins, target))
	agg.Merge(f.Air(origins, target))

	plans := FindAmphibOptions(gs, player, true, target, land)
	agg.ApplyAmphib(plans)
	agg.ApplyBombard(f.Bombard(origins, plans))
	agg.ApplyScramble(FindScrambleOptions(gs, player, agg.Targets(), pl.scramble, odds))
	return agg
}

// Execute runs plan's moves through ex and journals the outcome.
func (pl *Planner) Execute(ctx context.Context, plan *Plan, ex Executor) error {
	results, err := Execute(ctx, ex, plan.Moves)
	plan.Results = results
	pl.journalResults(ctx, plan)

	lg := logger.ForPlan(ctx)
	if err != nil {
		lg.Warn().Err(err).Int("executed", len(results)).Msg("Plan execution interrupted")
		return fmt.Errorf("execute plan %s: %w", plan.ID, err)
	}
	lg.Info().Int("moves", len(results)).Int("failed", plan.Failed()).Msg("Plan executed")
	return nil
}

func (pl *Planner) journal(ctx context.Context, plan *Plan) {
	if pl.repo == nil {
		return
	}
	rec := &model.Plan{
		ID:      plan.ID,
		GameID:  pl.gameID,
		Player:  plan.Player,
		Round:   plan.Round,
		Targets: plan.Targets(),
		Status:  model.PlanPlanned,
	}
	plan.moveIDs = make([]string, len(plan.Moves))
	for i, m := range plan.Moves {
		plan.moveIDs[i] = uuid.NewString()
		pm := model.PlanMove{
			ID:      plan.moveIDs[i],
			PlanID:  plan.ID,
			Seq:     i,
			Kind:    string(m.Kind),
			Target:  m.Target,
			UnitIDs: wargame.UnitIDs(m.Units),
		}
		if m.Route != nil {
			pm.Route = m.Route.All()
		}
		if m.Transport != nil {
			pm.Transport = m.Transport.ID
		}
		rec.Moves = append(rec.Moves, pm)
	}
	if err := pl.repo.CreatePlan(ctx, rec); err != nil {
		lg := logger.ForPlan(ctx)
		lg.Warn().Err(err).Msg("Failed to journal plan")
		plan.moveIDs = nil
	}
}

func (pl *Planner) journalResults(ctx context.Context, plan *Plan) {
	if pl.repo == nil || plan.moveIDs == nil {
		return
	}
	lg := logger.ForPlan(ctx)
	status := model.PlanExecuted
	for i, r := range plan.Results {
		result := "ok"
		if r.Err != nil {
			result = r.Err.Error()
			status = model.PlanFailed
		}
		if err := pl.repo.UpdateMoveResult(ctx, plan.moveIDs[i], result); err != nil {
			lg.Warn().Err(err).Int("seq", i).Msg("Failed to journal move result")
		}
	}
	if len(plan.Results) < len(plan.Moves) {
		status = model.PlanFailed
	}
	if err := pl.repo.MarkExecuted(ctx, plan.ID, status); err != nil {
		lg.Warn().Err(err).Msg("Failed to journal plan status")
	}
}
