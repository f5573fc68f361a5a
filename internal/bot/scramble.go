package bot

import (
	"sort"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// ScrambleRules are the game options that govern scrambling.
type ScrambleRules struct {
	Enabled        bool
	FromIslandOnly bool
	ToSeaOnly      bool
}

// FindScrambleOptions returns, per target, the enemy air units that could
// scramble in to defend it. When more units are eligible than the airbases
// allow, the strongest defenders are kept.
func FindScrambleOptions(gs *wargame.GameState, player string, targets []string, rules ScrambleRules, odds *Odds) map[string][]*wargame.Unit {
	out := make(map[string][]*wargame.Unit)
	if !rules.Enabled {
		return out
	}
	maxDist := maxScrambleDistance(gs)
	if maxDist <= 0 {
		return out
	}

	m := gs.Map
	enemy := IsEnemyUnit(gs, player)
	scramblers := enemy.And(CanScramble(), func(u *wargame.Unit) bool { return !u.Disabled })
	airBases := enemy.And(IsActiveAirBase(), IsTransported().Not())
	source := Or(IsWater(), IsEnemyLand(gs, player)).And(
		HasUnits(gs, scramblers),
		HasUnits(gs, airBases),
	)
	if rules.FromIslandOnly {
		source = source.And(func(t *wargame.Territory) bool { return m.IsIsland(t.ID) })
	}

	for _, target := range targets {
		t := m.Territory(target)
		if t == nil || (rules.ToSeaOnly && !t.Water) {
			continue
		}
		var units []*wargame.Unit
		for _, from := range m.Within(target, maxDist, nil) {
			if !source(m.Territory(from)) {
				continue
			}
			r := m.Route(from, target, IsPassable(), nil)
			if r == nil {
				continue
			}
			allowed := scrambleCap(gs.UnitsMatching(from, airBases))
			var eligible []*wargame.Unit
			for _, u := range gs.UnitsMatching(from, scramblers) {
				if r.Len() <= u.Type.MaxScrambleDistance {
					eligible = append(eligible, u)
				}
			}
			if allowed != wargame.UnlimitedScramble && len(eligible) > allowed {
				sort.SliceStable(eligible, func(i, j int) bool {
					si := odds.EstimateStrength(target, eligible[i:i+1], nil, false)
					sj := odds.EstimateStrength(target, eligible[j:j+1], nil, false)
					if si != sj {
						return si > sj
					}
					return eligible[i].ID < eligible[j].ID
				})
				eligible = eligible[:allowed]
			}
			units = append(units, eligible...)
		}
		if len(units) > 0 {
			out[target] = units
		}
	}
	return out
}

// scrambleCap sums the per-base caps. Any unlimited base lifts the cap.
func scrambleCap(bases []*wargame.Unit) int {
	total := 0
	for _, b := range bases {
		if b.Type.MaxScrambleCount == wargame.UnlimitedScramble {
			return wargame.UnlimitedScramble
		}
		total += b.Type.MaxScrambleCount
	}
	return total
}

func maxScrambleDistance(gs *wargame.GameState) int {
	best := 0
	seen := make(map[*wargame.UnitType]bool)
	for _, u := range gs.Units() {
		if seen[u.Type] {
			continue
		}
		seen[u.Type] = true
		if u.Type.CanScramble && u.Type.MaxScrambleDistance > best {
			best = u.Type.MaxScrambleDistance
		}
	}
	return best
}
