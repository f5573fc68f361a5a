package bot

import (
	"math"
	"sort"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// UnitOptions is one unit and the targets it may still be sent to.
type UnitOptions struct {
	Unit    *wargame.Unit
	Targets []string
}

// airEfficiencyWeight scales the efficiency of air units, which are worth
// more kept flexible.
const airEfficiencyWeight = 10

type sortKey struct {
	opts       UnitOptions
	need       int
	efficiency float64
	distance   int
}

func unitOptions(idx UnitOptionIndex) []UnitOptions {
	out := make([]UnitOptions, 0, len(idx))
	for _, u := range idx.Units() {
		out = append(out, UnitOptions{Unit: u, Targets: idx[u].Sorted()})
	}
	return out
}

// lessByTypeThenID is the final tie-break shared by every ordering.
func lessByTypeThenID(a, b *wargame.Unit) bool {
	if a.Type.Name != b.Type.Name {
		return a.Type.Name < b.Type.Name
	}
	return a.ID < b.ID
}

// SortByScarcity orders units with fewer options first, then cheaper units.
func SortByScarcity(idx UnitOptionIndex) []UnitOptions {
	out := unitOptions(idx)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a.Targets) != len(b.Targets) {
			return len(a.Targets) < len(b.Targets)
		}
		if a.Unit.Type.Cost != b.Unit.Type.Cost {
			return a.Unit.Type.Cost < b.Unit.Type.Cost
		}
		return lessByTypeThenID(a.Unit, b.Unit)
	})
	return out
}

// SortByNeed orders units by how many of their targets are not yet won,
// fewest first, then by cost.
func SortByNeed(opts []UnitOptions, wins func(target string) bool) []UnitOptions {
	keys := make([]sortKey, len(opts))
	for i, o := range opts {
		keys[i] = sortKey{opts: o, need: countNeeded(o.Targets, wins)}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.need != b.need {
			return a.need < b.need
		}
		if a.opts.Unit.Type.Cost != b.opts.Unit.Type.Cost {
			return a.opts.Unit.Type.Cost < b.opts.Unit.Type.Cost
		}
		return lessByTypeThenID(a.opts.Unit, b.opts.Unit)
	})
	return unkey(keys)
}

// SortByNeedThenAttack orders units by need, then by the power they add to
// their weakest not-yet-won target per unit of cost, strongest first. Air
// units of one type are ordered by total distance to the targets they are
// needed at.
func SortByNeedThenAttack(gs *wargame.GameState, player string, opts []UnitOptions, wins func(target string) bool) []UnitOptions {
	airThrough := CanMoveAirThrough(gs, player)
	keys := make([]sortKey, len(opts))
	for i, o := range opts {
		k := sortKey{opts: o, need: countNeeded(o.Targets, wins)}
		minPower := math.MaxInt
		for _, t := range o.Targets {
			if wins(t) {
				continue
			}
			minPower = min(minPower, marginalPower(gs, o.Unit, t))
			if o.Unit.IsAir() {
				if d := gs.Map.DistanceMatching(gs.LocationOf(o.Unit), t, airThrough); d > 0 {
					k.distance += d
				}
			}
		}
		if minPower != math.MaxInt {
			if o.Unit.IsAir() {
				minPower *= airEfficiencyWeight
			}
			k.efficiency = float64(minPower) / float64(max(o.Unit.Type.Cost, 1))
		}
		keys[i] = k
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.need != b.need {
			return a.need < b.need
		}
		if a.efficiency != b.efficiency {
			return a.efficiency > b.efficiency
		}
		ua, ub := a.opts.Unit, b.opts.Unit
		if ua.Type.Name == ub.Type.Name && ua.IsAir() && a.distance != b.distance {
			return a.distance < b.distance
		}
		return lessByTypeThenID(ua, ub)
	})
	return unkey(keys)
}

// marginalPower is the attack power u adds to a battle in target.
func marginalPower(gs *wargame.GameState, u *wargame.Unit, target string) int {
	t := gs.Map.Territory(target)
	if t == nil || !canBeInBattle(t.Water)(u) {
		return 0
	}
	return wargame.Power(u, true)
}

func countNeeded(targets []string, wins func(string) bool) int {
	n := 0
	for _, t := range targets {
		if !wins(t) {
			n++
		}
	}
	return n
}

func unkey(keys []sortKey) []UnitOptions {
	out := make([]UnitOptions, len(keys))
	for i, k := range keys {
		out[i] = k.opts
	}
	return out
}
