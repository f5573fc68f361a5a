package bot

import (
	"math"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// nearby-territory radii for the value heuristic.
const (
	landValueRadius = 2
	seaValueRadius  = 3
)

// AttackValue is the raw worth of taking t: three times its production,
// doubled for an enemy factory. Neutral territory is discounted by the
// expected cost of beating its garrison.
func AttackValue(gs *wargame.GameState, player, territory string) float64 {
	t := gs.Map.Territory(territory)
	if t == nil {
		return 0
	}
	factory := 0.0
	if HasEnemyFactory(gs, player)(t) {
		factory = 1
	}
	value := 3 * float64(t.Production) * (factory + 1)
	if t.IsNeutral() {
		strength := HeuristicStrength{}.Strength(t, gs.UnitsIn(territory), nil, false, gs.DiceSides)
		value -= strength / 8 * minCostPerHitPoint(gs)
	}
	return value
}

// minCostPerHitPoint is the cheapest land hit point among the unit types in
// play.
func minCostPerHitPoint(gs *wargame.GameState) float64 {
	best := math.MaxFloat64
	for _, u := range gs.Units() {
		if !u.IsLand() || u.Type.IsInfrastructure || u.Type.Cost <= 0 {
			continue
		}
		best = math.Min(best, float64(u.Type.Cost)/float64(u.Type.MaxHitPoints()))
	}
	if best == math.MaxFloat64 {
		return 0
	}
	return best
}

// FindTerritoryValues scores every territory in check for player. Targets in
// toAttack are left out of the nearby terms and territories in cantHold score
// zero.
func FindTerritoryValues(gs *wargame.GameState, player string, cantHold, toAttack TerritorySet, check []string) map[string]float64 {
	centers := enemyCentersValue(gs, player, cantHold, toAttack)
	out := make(map[string]float64, len(check))
	for _, id := range check {
		t := gs.Map.Territory(id)
		if t == nil {
			continue
		}
		if cantHold.Has(id) {
			out[id] = 0
			continue
		}
		if t.Water {
			out[id] = seaValue(gs, player, id, centers, cantHold, toAttack)
		} else {
			out[id] = landValue(gs, player, id, centers, cantHold, toAttack)
		}
	}
	return out
}

// enemyCentersValue values enemy capitals and factories by production. When
// factories are everywhere they stop being special and only capitals count.
func enemyCentersValue(gs *wargame.GameState, player string, cantHold, toAttack TerritorySet) map[string]float64 {
	enemyLand := IsEnemyLand(gs, player)
	factory := HasUnits(gs, IsFactory())
	factories := NewTerritorySet()
	enemyCount := 0
	for _, id := range gs.Map.IDs() {
		t := gs.Map.Territory(id)
		if t.Water {
			continue
		}
		if enemyLand(t) {
			enemyCount++
		}
		if factory(t) && (enemyLand(t) || cantHold.Has(id)) {
			factories.Add(id)
		}
	}
	if len(factories)*2 >= enemyCount {
		factories = NewTerritorySet()
	}
	for _, id := range gs.Map.IDs() {
		t := gs.Map.Territory(id)
		if t.IsCapital() && enemyLand(t) {
			factories.Add(id)
		}
	}
	out := make(map[string]float64, len(factories))
	for id := range factories {
		if toAttack.Has(id) {
			continue
		}
		out[id] = float64(gs.Map.Territory(id).Production)
	}
	return out
}

func landValue(gs *wargame.GameState, player, id string, centers map[string]float64, cantHold, toAttack TerritorySet) float64 {
	m := gs.Map
	value := 0.0
	for e, v := range centers {
		if d := m.DistanceMatching(id, e, CanMoveLandInto()); d > 0 {
			value += v / math.Pow(2, float64(d))
		}
	}

	target := IsEnemyOrCantHold(gs, player, cantHold)
	alliedSafe := IsAlliedLandWithNoEnemyNeighbors(gs, player)
	for _, n := range m.Within(id, landValueRadius, CanMoveLandInto()) {
		nt := m.Territory(n)
		if toAttack.Has(n) || !target(nt) {
			continue
		}
		d := m.DistanceMatching(id, n, CanMoveLandInto())
		if d <= 0 {
			continue
		}
		v := float64(nt.Production)
		switch {
		case nt.IsNeutral():
			v = AttackValue(gs, player, n) / 3
		case alliedSafe(nt):
			v *= 0.1
		}
		if v > 0 {
			value += v / math.Pow(2, float64(d))
		}
	}
	return value
}

func seaValue(gs *wargame.GameState, player, id string, centers map[string]float64, cantHold, toAttack TerritorySet) float64 {
	m := gs.Map
	f := NewOptionFinder(gs, player, false)
	value := 0.0
	for e, v := range centers {
		r := f.SeaRoute(id, e)
		if r == nil {
			continue
		}
		value += v / math.Pow(3, float64(r.Len()))
	}

	target := IsEnemyOrCantHold(gs, player, cantHold)
	for _, n := range m.Within(id, seaValueRadius, IsPassable()) {
		nt := m.Territory(n)
		if nt.Water || toAttack.Has(n) || !target(nt) {
			continue
		}
		r := f.SeaRoute(id, n)
		if r == nil || r.Len() > seaValueRadius {
			continue
		}
		v := float64(nt.Production)
		if nt.IsNeutral() {
			v = AttackValue(gs, player, n) / 3
		}
		if v > 0 {
			value += v / math.Pow(2, float64(r.Len()))
		}
	}
	return value
}
