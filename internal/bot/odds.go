package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/internal/model"
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// ErrOracleUnavailable is returned when the combat oracle fails or times out.
var ErrOracleUnavailable = errors.New("combat oracle unavailable")

// Oracle simulates one battle.
type Oracle interface {
	Simulate(ctx context.Context, req wargame.BattleRequest) (wargame.BattleResult, error)
}

// StrengthEstimator gives a cheap strength score for a group of units
// fighting in t against enemies.
type StrengthEstimator interface {
	Strength(t *wargame.Territory, units, enemies []*wargame.Unit, attacking bool, diceSides int) float64
}

// OddsCache stores estimates across planning passes. A nil record with a nil
// error is a miss.
type OddsCache interface {
	GetOdds(ctx context.Context, key string) (*model.OddsRecord, error)
	SetOdds(ctx context.Context, key string, rec *model.OddsRecord) error
}

// Pre-filter cutoffs on the strength difference scale, where 50 is even.
const (
	noChanceCutoff     = 45
	defenderLoseCutoff = 55
)

// HeuristicStrength scores units as twice their hit points plus their power
// normalized to six-sided dice.
type HeuristicStrength struct{}

// Strength implements StrengthEstimator.
func (HeuristicStrength) Strength(t *wargame.Territory, units, _ []*wargame.Unit, attacking bool, diceSides int) float64 {
	if diceSides <= 0 {
		diceSides = 6
	}
	fighting := Filter(units, canBeInBattle(t.Water))
	power := 0
	for _, u := range fighting {
		power += wargame.Power(u, attacking)
	}
	return 2*float64(wargame.TotalHitPoints(fighting)) + float64(power)*6/float64(diceSides)
}

// canBeInBattle holds for units that take part in combat in land or sea
// territory: no infrastructure, no sea units on land, no land units at sea.
func canBeInBattle(water bool) UnitPredicate {
	return func(u *wargame.Unit) bool {
		if !wargame.CanFight(u) {
			return false
		}
		if water {
			return !u.IsLand()
		}
		return !u.IsSea()
	}
}

// Odds adapts an Oracle for the planner. It short-circuits degenerate
// battles, pre-filters hopeless ones and memoizes results by battle
// composition. Safe for concurrent use.
type Odds struct {
	state    *wargame.GameState
	oracle   Oracle
	strength StrengthEstimator
	cache    OddsCache
	timeout  time.Duration

	mu   sync.Mutex
	memo map[string]BattleEstimate
}

// OddsOption configures an Odds adapter.
type OddsOption func(*Odds)

// WithStrengthEstimator replaces the heuristic pre-filter estimator.
func WithStrengthEstimator(s StrengthEstimator) OddsOption {
	return func(o *Odds) { o.strength = s }
}

// WithOddsCache adds a cross-pass cache.
func WithOddsCache(c OddsCache) OddsOption {
	return func(o *Odds) { o.cache = c }
}

// WithOracleTimeout bounds each oracle call.
func WithOracleTimeout(d time.Duration) OddsOption {
	return func(o *Odds) { o.timeout = d }
}

// NewOdds returns an adapter over oracle for battles in gs.
func NewOdds(gs *wargame.GameState, oracle Oracle, opts ...OddsOption) *Odds {
	o := &Odds{
		state:    gs,
		oracle:   oracle,
		strength: HeuristicStrength{},
		memo:     make(map[string]BattleEstimate),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// EstimateStrength scores units fighting in territory.
func (o *Odds) EstimateStrength(territory string, units, enemies []*wargame.Unit, attacking bool) float64 {
	t := o.state.Map.Territory(territory)
	if t == nil {
		return 0
	}
	return o.strength.Strength(t, units, enemies, attacking, o.state.DiceSides)
}

// StrengthDifference compares attackers with the non-infrastructure
// defenders of territory. 50 is an even fight; 0 means no attackers and 100
// means nothing to fight.
func (o *Odds) StrengthDifference(territory string, attackers, defenders []*wargame.Unit) float64 {
	if len(attackers) == 0 {
		return 0
	}
	actual := Filter(defenders, IsInfrastructure().Not())
	if len(actual) == 0 {
		return 100
	}
	a := o.EstimateStrength(territory, attackers, actual, true)
	d := o.EstimateStrength(territory, actual, attackers, false)
	if d <= 0 {
		return 100
	}
	return (a-d)/math.Pow(d, 0.85)*50 + 50
}

// EstimateAttack estimates an attack the planner is considering. Battles the
// attackers cannot win are answered by the pre-filter.
func (o *Odds) EstimateAttack(ctx context.Context, territory string, attackers, defenders, bombard []*wargame.Unit) (BattleEstimate, error) {
	if e, ok := o.degenerate(territory, attackers, defenders); ok {
		return e, nil
	}
	if o.StrengthDifference(territory, attackers, defenders) < noChanceCutoff {
		return BattleEstimate{
			TUVSwing:           -999,
			DefendersRemaining: defenders,
			AverageRounds:      1,
		}, nil
	}
	return o.calculate(ctx, territory, attackers, defenders, bombard, false)
}

// EstimateDefend estimates an enemy attack on a territory the planner wants
// to hold. Battles the defenders cannot lose are answered by the pre-filter.
func (o *Odds) EstimateDefend(ctx context.Context, territory string, attackers, defenders, bombard []*wargame.Unit) (BattleEstimate, error) {
	if e, ok := o.degenerate(territory, attackers, defenders); ok {
		return e, nil
	}
	if diff := o.StrengthDifference(territory, attackers, defenders); diff > defenderLoseCutoff {
		t := o.state.Map.Territory(territory)
		airOnly := t != nil && !t.Water && All(attackers, IsAirUnit())
		return BattleEstimate{
			WinPercent:           100,
			TUVSwing:             999 + diff,
			AttackersRemaining:   attackers,
			HasLandUnitRemaining: !airOnly,
			AverageRounds:        1,
		}, nil
	}
	return o.calculate(ctx, territory, attackers, defenders, bombard, false)
}

// Calculate runs the oracle unless the battle is degenerate.
func (o *Odds) Calculate(ctx context.Context, territory string, attackers, defenders, bombard []*wargame.Unit, retreatWhenOnlyAirLeft bool) (BattleEstimate, error) {
	if e, ok := o.degenerate(territory, attackers, defenders); ok {
		return e, nil
	}
	return o.calculate(ctx, territory, attackers, defenders, bombard, retreatWhenOnlyAirLeft)
}

// degenerate answers battles that need no simulation.
func (o *Odds) degenerate(territory string, attackers, defenders []*wargame.Unit) (BattleEstimate, bool) {
	t := o.state.Map.Territory(territory)
	if len(attackers) == 0 || t == nil {
		return BattleEstimate{}, true
	}
	noDefenders := !Any(defenders, IsInfrastructure().Not())
	airOnlyOverLand := !t.Water && All(attackers, IsAirUnit())
	switch {
	case noDefenders && airOnlyOverLand:
		return BattleEstimate{}, true
	case noDefenders:
		return BattleEstimate{
			WinPercent:           100,
			TUVSwing:             0.1,
			AttackersRemaining:   attackers,
			HasLandUnitRemaining: true,
			AverageRounds:        1,
		}, true
	case o.state.SubRetreatBeforeBattle && All(defenders, IsSub()) && !Any(attackers, IsDestroyer()):
		return BattleEstimate{}, true
	}
	return BattleEstimate{}, false
}

func (o *Odds) calculate(ctx context.Context, territory string, attackers, defenders, bombard []*wargame.Unit, retreat bool) (BattleEstimate, error) {
	if len(defenders) == 0 {
		return BattleEstimate{}, nil
	}
	key := battleKey(o.state, territory, attackers, defenders, bombard, retreat)

	o.mu.Lock()
	e, ok := o.memo[key]
	o.mu.Unlock()
	if ok {
		// Same composition, possibly different unit instances.
		return fromRecord(toRecord(e), attackers, defenders), nil
	}

	if o.cache != nil {
		rec, err := o.cache.GetOdds(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("territory", territory).Msg("Odds cache read failed")
		}
		if rec != nil {
			e = fromRecord(rec, attackers, defenders)
			o.remember(key, e)
			return e, nil
		}
	}

	e, err := o.simulate(ctx, territory, attackers, defenders, bombard, retreat)
	if err != nil {
		return BattleEstimate{}, err
	}
	o.remember(key, e)
	if o.cache != nil {
		if err := o.cache.SetOdds(ctx, key, toRecord(e)); err != nil {
			log.Warn().Err(err).Str("territory", territory).Msg("Odds cache write failed")
		}
	}
	return e, nil
}

func (o *Odds) remember(key string, e BattleEstimate) {
	o.mu.Lock()
	o.memo[key] = e
	o.mu.Unlock()
}

func (o *Odds) simulate(ctx context.Context, territory string, attackers, defenders, bombard []*wargame.Unit, retreat bool) (BattleEstimate, error) {
	if o.oracle == nil {
		return BattleEstimate{}, fmt.Errorf("simulate %s: %w", territory, ErrOracleUnavailable)
	}
	t := o.state.Map.Territory(territory)
	req := wargame.BattleRequest{
		Attacker:               attackers[0].Owner,
		Defender:               defenders[0].Owner,
		Territory:              territory,
		Water:                  t.Water,
		Attackers:              attackers,
		Defenders:              defenders,
		Bombarding:             bombard,
		Iterations:             max(16, 100-min(len(attackers), len(defenders))),
		DiceSides:              o.state.DiceSides,
		LowLuck:                o.state.LowLuck,
		RetreatWhenOnlyAirLeft: retreat,
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	res, err := o.oracle.Simulate(ctx, req)
	if err != nil {
		return BattleEstimate{}, fmt.Errorf("simulate %s: %w: %w", territory, ErrOracleUnavailable, err)
	}

	win := math.Max(0, math.Min(100, res.WinPercent))
	swing := res.TUVSwing
	if t.IsNeutral() {
		fighting := Filter(attackers, canBeInBattle(false))
		swing = float64(wargame.TUV(res.AttackersRemaining) - wargame.TUV(fighting))
	}
	if t.Water {
		if carried := Filter(defenders, IsTransported()); len(carried) > 0 {
			swing += float64(wargame.TUV(carried)) * win / 100
		}
	}
	hasLand := len(res.AttackersRemaining) > 0
	if !t.Water {
		hasLand = Any(res.AttackersRemaining, IsLandUnit())
	}
	return BattleEstimate{
		WinPercent:           win,
		TUVSwing:             swing,
		AttackersRemaining:   res.AttackersRemaining,
		DefendersRemaining:   res.DefendersRemaining,
		HasLandUnitRemaining: hasLand,
		AverageRounds:        res.AverageRounds,
	}, nil
}

// battleKey describes a battle by territory, its owner, rules and unit
// composition so equal battles share one estimate.
func battleKey(gs *wargame.GameState, territory string, attackers, defenders, bombard []*wargame.Unit, retreat bool) string {
	var b strings.Builder
	b.WriteString(territory)
	if t := gs.Map.Territory(territory); t != nil {
		switch {
		case t.IsNeutral():
			b.WriteString("|neutral")
		case t.Owner != "":
			b.WriteString("|o=")
			b.WriteString(t.Owner)
		}
	}
	b.WriteString("|d")
	b.WriteString(strconv.Itoa(gs.DiceSides))
	if gs.LowLuck {
		b.WriteString("|ll")
	}
	if retreat {
		b.WriteString("|r")
	}
	for _, side := range [][]*wargame.Unit{attackers, defenders, bombard} {
		b.WriteByte('|')
		b.WriteString(composition(side))
	}
	return b.String()
}

func composition(units []*wargame.Unit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Type.Name + ":" + strconv.Itoa(u.HitPointsLeft())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func toRecord(e BattleEstimate) *model.OddsRecord {
	names := func(units []*wargame.Unit) []string {
		out := make([]string, len(units))
		for i, u := range units {
			out[i] = u.Type.Name
		}
		return out
	}
	return &model.OddsRecord{
		WinPercent:           e.WinPercent,
		TUVSwing:             e.TUVSwing,
		AttackersRemaining:   names(e.AttackersRemaining),
		DefendersRemaining:   names(e.DefendersRemaining),
		HasLandUnitRemaining: e.HasLandUnitRemaining,
		AverageRounds:        e.AverageRounds,
	}
}

// fromRecord maps cached survivor type names back onto the given units.
func fromRecord(rec *model.OddsRecord, attackers, defenders []*wargame.Unit) BattleEstimate {
	return BattleEstimate{
		WinPercent:           rec.WinPercent,
		TUVSwing:             rec.TUVSwing,
		AttackersRemaining:   pickByType(attackers, rec.AttackersRemaining),
		DefendersRemaining:   pickByType(defenders, rec.DefendersRemaining),
		HasLandUnitRemaining: rec.HasLandUnitRemaining,
		AverageRounds:        rec.AverageRounds,
	}
}

func pickByType(units []*wargame.Unit, names []string) []*wargame.Unit {
	used := make(map[*wargame.Unit]bool, len(names))
	var out []*wargame.Unit
	for _, name := range names {
		for _, u := range units {
			if !used[u] && u.Type.Name == name {
				used[u] = true
				out = append(out, u)
				break
			}
		}
	}
	return out
}
