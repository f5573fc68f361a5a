package bot

import (
	"context"
	"math"
	"slices"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

const (
	// strengthDifferenceCutoff is the strength difference below which a
	// ground or naval unit is sent to its weakest target first.
	strengthDifferenceCutoff = 40
	// aaStrengthPenalty makes targets defended by AA look weaker.
	aaStrengthPenalty = 10
)

// assigner commits units to attack packages for one pass.
type assigner struct {
	state   *wargame.GameState
	player  string
	odds    *Odds
	th      Thresholds
	agg     *Aggregator
	finder  *OptionFinder
	enemies OtherOptions // enemy attack options, used to pick unload zones

	committed map[*wargame.Unit]string // unit -> target
}

func newAssigner(gs *wargame.GameState, player string, odds *Odds, th Thresholds, agg *Aggregator, enemies OtherOptions) *assigner {
	return &assigner{
		state:     gs,
		player:    player,
		odds:      odds,
		th:        th,
		agg:       agg,
		finder:    NewOptionFinder(gs, player, true),
		enemies:   enemies,
		committed: make(map[*wargame.Unit]string),
	}
}

// estimate returns the memoized estimate of p's committed units, computing
// it on a miss. An oracle failure reads as a lost battle.
func (a *assigner) estimate(ctx context.Context, p *AttackPackage) BattleEstimate {
	if e, ok := p.Result(); ok {
		return e
	}
	e, err := a.odds.EstimateAttack(ctx, p.Target, p.Attackers(), maxDefenders(a.state, a.player, p), p.Bombard)
	if err != nil {
		log.Warn().Err(err).Str("target", p.Target).Msg("Treating target as lost, odds unavailable")
		e = BattleEstimate{}
	}
	p.SetResult(e)
	return e
}

func (a *assigner) isCommitted(u *wargame.Unit) bool {
	_, ok := a.committed[u]
	return ok
}

func (a *assigner) commit(p *AttackPackage, u *wargame.Unit) {
	p.AddUnit(u)
	a.committed[u] = p.Target
}

func (a *assigner) remaining(opts []UnitOptions) []UnitOptions {
	out := opts[:0:0]
	for _, o := range opts {
		if !a.isCommitted(o.Unit) {
			out = append(out, o)
		}
	}
	return out
}

func (a *assigner) takenSet() map[*wargame.Unit]bool {
	out := make(map[*wargame.Unit]bool, len(a.committed))
	for u := range a.committed {
		out[u] = true
	}
	return out
}

// restrict returns the entries of idx narrowed to targets in keep.
func restrict(idx UnitOptionIndex, keep TerritorySet) UnitOptionIndex {
	out := make(UnitOptionIndex)
	for u, targets := range idx {
		for t := range targets {
			if keep.Has(t) {
				out.Add(u, t)
			}
		}
	}
	return out
}

// determineTargets grows the attacked list one prioritized target at a time.
// Whenever a committed, non-strafing attack falls below MinWin or leaves no
// unit to hold the territory, the newest target is dropped and the rest is
// retried. It returns the surviving targets with their units committed.
func (a *assigner) determineTargets(ctx context.Context, prioritized []*AttackPackage) ([]*AttackPackage, error) {
	list := append([]*AttackPackage(nil), prioritized...)
	n := min(1, len(list))
	for n > 0 {
		if err := a.tryToAttack(ctx, list[:n]); err != nil {
			return nil, err
		}
		if !a.successful(ctx, list[:n]) {
			log.Debug().Str("target", list[n-1].Target).Msg("Removing target, attacks fail with it")
			list = append(list[:n-1:n-1], list[n:]...)
			n = min(n, len(list))
			continue
		}
		if a.transportsExhausted() {
			rest := Filter(list[n:], func(p *AttackPackage) bool { return !p.NeedsAmphib })
			list = append(list[:n:n], rest...)
		}
		if n == len(list) {
			return list, nil
		}
		n++
	}
	if err := a.tryToAttack(ctx, nil); err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *assigner) successful(ctx context.Context, attempted []*AttackPackage) bool {
	for _, p := range attempted {
		if p.Strafing {
			continue
		}
		e := a.estimate(ctx, p)
		if e.WinPercent < a.th.MinWin || !e.HasLandUnitRemaining {
			return false
		}
	}
	return true
}

func (a *assigner) transportsExhausted() bool {
	for t := range a.agg.TransportIndex {
		if !a.isCommitted(t) {
			return false
		}
	}
	return true
}

// tryToAttack clears every commitment and assigns units to packages in
// phases: destroyers against subs, units to targets they barely fight,
// ground and naval units to holdable targets, air to targets that can't be
// held, everything left to any target still short, amphibious landings and
// finally bombardment.
func (a *assigner) tryToAttack(ctx context.Context, packages []*AttackPackage) error {
	for _, p := range a.agg.Packages() {
		p.ClearCommitted()
	}
	a.committed = make(map[*wargame.Unit]string)
	if len(packages) == 0 {
		return ctx.Err()
	}

	byTarget := make(map[string]*AttackPackage, len(packages))
	keep := NewTerritorySet()
	for _, p := range packages {
		byTarget[p.Target] = p
		keep.Add(p.Target)
	}
	wins := func(target string) bool {
		p := byTarget[target]
		return p != nil && a.estimate(ctx, p).CurrentlyWins(a.th)
	}

	options := SortByScarcity(restrict(a.agg.UnitIndex, keep))
	a.assignDestroyers(options, packages)
	options = a.remaining(options)
	a.assignByStrength(options, byTarget)
	if err := ctx.Err(); err != nil {
		return err
	}

	options = SortByNeedThenAttack(a.state, a.player, a.remaining(options), wins)
	a.assignHoldable(ctx, options, byTarget)
	options = SortByNeedThenAttack(a.state, a.player, a.remaining(options), wins)
	a.assignAir(ctx, options, byTarget)
	options = SortByNeedThenAttack(a.state, a.player, a.remaining(options), wins)
	a.assignRemaining(ctx, options, byTarget)
	if err := ctx.Err(); err != nil {
		return err
	}

	a.assignAmphib(ctx, keep, byTarget)
	a.assignBombard(packages, keep)
	return ctx.Err()
}

// assignDestroyers puts one destroyer into each sea target defended by subs.
func (a *assigner) assignDestroyers(options []UnitOptions, packages []*AttackPackage) {
	for _, p := range packages {
		if !Any(maxDefenders(a.state, a.player, p), IsSub()) || Any(p.Units, IsDestroyer()) {
			continue
		}
		for _, o := range options {
			if IsDestroyer()(o.Unit) && !a.isCommitted(o.Unit) && slices.Contains(o.Targets, p.Target) {
				a.commit(p, o.Unit)
				break
			}
		}
	}
}

// assignByStrength sends each ground or naval unit to the target where the
// committed force is weakest, as long as that force is clearly outmatched.
func (a *assigner) assignByStrength(options []UnitOptions, byTarget map[string]*AttackPackage) {
	for _, o := range options {
		if o.Unit.IsAir() {
			continue
		}
		var best *AttackPackage
		bestDiff := math.MaxFloat64
		for _, target := range o.Targets {
			p := byTarget[target]
			t := a.state.Map.Territory(target)
			if p == nil || t == nil || (t.Water && !p.CanHold) {
				continue
			}
			defenders := maxDefenders(a.state, a.player, p)
			diff := a.odds.StrengthDifference(target, p.Attackers(), defenders)
			if Any(a.state.UnitsIn(target), IsEnemyUnit(a.state, a.player).And(IsAA())) {
				diff -= aaStrengthPenalty
			}
			if diff < bestDiff {
				best, bestDiff = p, diff
			}
		}
		if best != nil && bestDiff < strengthDifferenceCutoff {
			a.commit(best, o.Unit)
		}
	}
}

// weakestTarget returns the accepted, not yet won package with the lowest
// win percentage below Win. A package with no surviving land unit is taken
// when nothing else qualifies.
func (a *assigner) weakestTarget(ctx context.Context, o UnitOptions, byTarget map[string]*AttackPackage, accept func(*AttackPackage, BattleEstimate) bool) *AttackPackage {
	var best *AttackPackage
	minWin := a.th.Win
	for _, target := range o.Targets {
		p := byTarget[target]
		if p == nil {
			continue
		}
		e := a.estimate(ctx, p)
		if e.CurrentlyWins(a.th) {
			continue
		}
		if e.WinPercent >= minWin && (e.HasLandUnitRemaining || best != nil) {
			continue
		}
		if accept != nil && !accept(p, e) {
			continue
		}
		best, minWin = p, e.WinPercent
		if p.Strafing && o.Unit.IsAir() {
			break
		}
	}
	return best
}

func (a *assigner) assignHoldable(ctx context.Context, options []UnitOptions, byTarget map[string]*AttackPackage) {
	holdable := func(p *AttackPackage, _ BattleEstimate) bool { return p.CanHold }
	for _, o := range options {
		if o.Unit.IsAir() {
			continue
		}
		if p := a.weakestTarget(ctx, o, byTarget, holdable); p != nil {
			a.commit(p, o.Unit)
		}
	}
}

// assignAir sends air units to targets that can't be held. Far targets need
// an enemy capital or an allied capital next door to land near.
func (a *assigner) assignAir(ctx context.Context, options []UnitOptions, byTarget map[string]*AttackPackage) {
	for _, o := range options {
		u := o.Unit
		if !u.IsAir() {
			continue
		}
		accept := func(p *AttackPackage, e BattleEstimate) bool {
			if p.CanHold {
				return false
			}
			if a.usesMoreThanHalfRange(u, p.Target) && !a.isEnemyCapital(p.Target) && !a.isNextTo(p.Target, a.isAlliedCapital) {
				return false
			}
			return a.airWorthwhile(p, e)
		}
		if p := a.weakestTarget(ctx, o, byTarget, accept); p != nil {
			a.commit(p, u)
		}
	}
}

// assignRemaining sends every unit still free to any target that is short.
// Air avoids far targets worth less than the unit unless an allied factory
// is next door.
func (a *assigner) assignRemaining(ctx context.Context, options []UnitOptions, byTarget map[string]*AttackPackage) {
	for _, o := range options {
		u := o.Unit
		var accept func(*AttackPackage, BattleEstimate) bool
		if u.IsAir() {
			accept = func(p *AttackPackage, e BattleEstimate) bool {
				if a.usesMoreThanHalfRange(u, p.Target) && !a.isNextTo(p.Target, a.isAlliedFactory) {
					t := a.state.Map.Territory(p.Target)
					if p.Value < float64(u.Type.Cost) || (!t.Water && !p.CanHold) {
						return false
					}
				}
				return a.airWorthwhile(p, e)
			}
		}
		if p := a.weakestTarget(ctx, o, byTarget, accept); p != nil {
			a.commit(p, u)
		}
	}
}

// airWorthwhile keeps aircraft away from targets with nothing to fight, and
// from AA fire when the target is only taken for lack of a land survivor.
func (a *assigner) airWorthwhile(p *AttackPackage, e BattleEstimate) bool {
	if !Any(maxDefenders(a.state, a.player, p), UnitPredicate(wargame.CanFight)) {
		return false
	}
	hasAA := Any(a.state.UnitsIn(p.Target), IsEnemyUnit(a.state, a.player).And(IsAA()))
	return !hasAA || e.WinPercent < a.th.Win
}

// assignAmphib lands cargo at the weakest target each transport can reach,
// unloading from the zone an enemy could least easily strike.
func (a *assigner) assignAmphib(ctx context.Context, keep TerritorySet, byTarget map[string]*AttackPackage) {
	for _, transport := range restrict(a.agg.TransportIndex, keep).Units() {
		plan := a.agg.Plan(transport)
		if plan == nil || a.isCommitted(transport) {
			continue
		}
		var best *AttackPackage
		minWin := a.th.Win
		for _, target := range plan.Targets() {
			p := byTarget[target]
			if p == nil {
				continue
			}
			e := a.estimate(ctx, p)
			if e.CurrentlyWins(a.th) {
				continue
			}
			if e.WinPercent < minWin || (!e.HasLandUnitRemaining && best == nil) {
				best, minWin = p, e.WinPercent
			}
		}
		if best == nil {
			continue
		}
		zone := a.safestUnloadZone(plan, best.Target)
		if zone == "" {
			continue
		}
		cargo := selectCargo(a.finder, plan, best.Target, zone, a.takenSet())
		if len(cargo) == 0 {
			continue
		}
		plan.Cargo[best.Target] = cargo
		plan.UnloadZone[best.Target] = zone
		best.AddAmphib(plan, cargo)
		a.committed[transport] = best.Target
		for _, u := range cargo {
			a.committed[u] = best.Target
		}
		log.Debug().
			Str("target", best.Target).
			Str("transport", transport.ID).
			Str("zone", zone).
			Int("cargo", len(cargo)).
			Msg("Adding amphibious attack")
	}
}

// safestUnloadZone picks the reachable zone next to target where enemy
// attackers hold the smallest edge over the transport and its escorts.
func (a *assigner) safestUnloadZone(plan *TransportPlan, target string) string {
	best, bestDiff, bestLen := "", math.MaxFloat64, math.MaxInt
	for _, zone := range plan.UnloadZones(a.state.Map, target) {
		path := SeaPath(a.finder, plan.Origin, zone)
		if path == nil || len(path)-1 > plan.Transport.MovementLeft {
			continue
		}
		var attackers []*wargame.Unit
		if a.enemies != nil {
			for _, p := range a.enemies.All(zone) {
				attackers = addUnique(attackers, p.MaxUnits...)
			}
		}
		defenders := addUnique(a.state.UnitsMatching(zone, IsAlliedUnit(a.state, a.player)), plan.Transport)
		diff := a.odds.StrengthDifference(zone, attackers, defenders)
		if diff < bestDiff || (diff == bestDiff && len(path) < bestLen) {
			best, bestDiff, bestLen = zone, diff, len(path)
		}
	}
	return best
}

// assignBombard adds free bombarding ships to landings whose unload zone
// they can reach, highest priority landing first.
func (a *assigner) assignBombard(packages []*AttackPackage, keep TerritorySet) {
	idx := restrict(a.agg.BombardIndex, keep)
	for _, u := range idx.Units() {
		if a.isCommitted(u) {
			continue
		}
		for _, p := range packages {
			if len(p.Amphib) == 0 || !idx[u].Has(p.Target) {
				continue
			}
			zone := unloadZoneOf(p)
			if zone == "" {
				continue
			}
			if loc := a.state.LocationOf(u); loc != zone {
				r := a.finder.SeaRoute(loc, zone)
				if r == nil || r.Len() > u.MovementLeft {
					continue
				}
			}
			p.BombardFrom[u] = zone
			p.AddBombard(u)
			a.committed[u] = p.Target
			break
		}
	}
}

// unloadZoneOf returns the unload zone of the first committed transport of
// p, by transport ID.
func unloadZoneOf(p *AttackPackage) string {
	transports := make([]*wargame.Unit, 0, len(p.Transport))
	for t := range p.Transport {
		transports = append(transports, t)
	}
	sort.Slice(transports, func(i, j int) bool { return transports[i].ID < transports[j].ID })
	for _, t := range transports {
		if zone := p.Transport[t].UnloadZone[p.Target]; zone != "" {
			return zone
		}
	}
	return ""
}

func (a *assigner) usesMoreThanHalfRange(u *wargame.Unit, target string) bool {
	d := a.state.Map.DistanceMatching(a.state.LocationOf(u), target, CanMoveAirThrough(a.state, a.player))
	return d > u.MovementLeft/2
}

func (a *assigner) isEnemyCapital(id string) bool {
	t := a.state.Map.Territory(id)
	return t != nil && t.IsCapital() && a.state.IsEnemy(a.player, t.Owner)
}

func (a *assigner) isAlliedCapital(id string) bool {
	t := a.state.Map.Territory(id)
	return t != nil && t.IsCapital() && t.Owner != "" && a.state.IsAllied(a.player, t.Owner)
}

func (a *assigner) isAlliedFactory(id string) bool {
	t := a.state.Map.Territory(id)
	return t != nil && IsAlliedLand(a.state, a.player)(t) && HasUnits(a.state, IsFactory())(t)
}

func (a *assigner) isNextTo(id string, pred func(string) bool) bool {
	for _, n := range a.state.Map.Neighbors(id) {
		if pred(n) {
			return true
		}
	}
	return false
}
