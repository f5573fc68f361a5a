package bot

import (
	"sort"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// TransportPlan holds the amphibious options of one transport for a pass.
type TransportPlan struct {
	Transport *wargame.Unit
	Origin    string

	UnloadOptions map[string]TerritorySet // target -> load-from territories
	SeaOptions    map[string]TerritorySet // sea waypoint -> load-from territories
	Cargo         map[string][]*wargame.Unit
	UnloadZone    map[string]string // target -> sea zone the cargo unloads from
	Fixed         []*wargame.Unit   // cargo already aboard
}

func newTransportPlan(t *wargame.Unit, origin string) *TransportPlan {
	return &TransportPlan{
		Transport:     t,
		Origin:        origin,
		UnloadOptions: make(map[string]TerritorySet),
		SeaOptions:    make(map[string]TerritorySet),
		Cargo:         make(map[string][]*wargame.Unit),
		UnloadZone:    make(map[string]string),
	}
}

// Targets returns the unload targets in sorted order.
func (p *TransportPlan) Targets() []string {
	out := make([]string, 0, len(p.UnloadOptions))
	for t := range p.UnloadOptions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// UnloadZones returns the recorded sea zones adjacent to target.
func (p *TransportPlan) UnloadZones(m *wargame.Map, target string) []string {
	var out []string
	for zone := range p.SeaOptions {
		if m.IsAdjacent(zone, target) {
			out = append(out, zone)
		}
	}
	sort.Strings(out)
	return out
}

// CargoCost returns the summed transport cost of cargo.
func CargoCost(cargo []*wargame.Unit) int {
	total := 0
	for _, u := range cargo {
		total += u.Type.TransportCost
	}
	return total
}

// FindAmphibOptions runs a breadth-first expansion over sea territories for
// every transport of player and records where it could load and unload.
// Pairs whose target every load-from territory already reaches by land are
// dropped. Remaining targets get cargo selected by SelectCargo. Outside combat
// it looks a whole turn ahead, giving every transport and cargo unit its full
// movement.
func FindAmphibOptions(gs *wargame.GameState, player string, combat bool, target TerritoryPredicate, land *OptionSet) []*TransportPlan {
	f := NewOptionFinder(gs, player, combat)
	if !combat {
		f = f.Lookahead()
	}
	m := gs.Map
	unloadPred := CanMoveLandInto().And(target)
	seaThrough := CanMoveSeaThrough(gs, player)
	enemySea := HasEnemySeaUnits(gs, player)

	var plans []*TransportPlan
	transports := OwnedBy(player).And(IsTransport())
	if combat {
		transports = transports.And(HasMovementLeft())
	}
	for _, origin := range f.Origins() {
		for _, t := range gs.UnitsMatching(origin, transports) {
			plan := newTransportPlan(t, origin)
			plan.Fixed = gs.CargoOf(t)
			plans = append(plans, plan)

			visited := NewTerritorySet(origin)
			current := []string{origin}
			for movesLeft := f.moves(t); movesLeft >= 0; movesLeft-- {
				var next []string
				for _, cur := range current {
					for _, n := range m.NeighborsMatching(cur, seaThrough) {
						if visited.Has(n) || gs.CanalBlocks(player, cur, n) {
							continue
						}
						visited.Add(n)
						next = append(next, n)
					}

					loadFrom := make(TerritorySet)
					if len(plan.Fixed) > 0 {
						loadFrom.Add(plan.Origin)
					} else if !enemySea(m.Territory(cur)) {
						for _, n := range m.NeighborsMatching(cur, IsLand()) {
							if len(f.loadableUnits(n, t)) > 0 {
								loadFrom.Add(n)
							}
						}
					}
					if len(loadFrom) == 0 {
						continue
					}

					zones := []string{cur}
					if movesLeft > 0 {
						for _, z := range m.Within(cur, movesLeft, CanMoveSeaInto()) {
							if r := f.SeaRoute(cur, z); r != nil && r.Len() <= movesLeft {
								zones = append(zones, z)
							}
						}
					}
					for _, z := range zones {
						if enemySea(m.Territory(z)) {
							continue
						}
						for _, dst := range m.NeighborsMatching(z, unloadPred) {
							addLoadFrom(plan.UnloadOptions, dst, loadFrom)
						}
						addLoadFrom(plan.SeaOptions, z, loadFrom)
					}
				}
				current = next
			}
		}
	}

	landRoutes := landRouteOrigins(gs, land)
	for _, plan := range plans {
		for dst, from := range plan.UnloadOptions {
			for origin := range landRoutes[dst] {
				from.Remove(origin)
			}
			if len(from) == 0 {
				delete(plan.UnloadOptions, dst)
			}
		}
	}

	selected := make(map[string]map[*wargame.Unit]bool)
	for _, plan := range plans {
		for _, dst := range plan.Targets() {
			zones := plan.UnloadZones(m, dst)
			if len(zones) == 0 {
				delete(plan.UnloadOptions, dst)
				continue
			}
			zone := closestZone(f, plan.Origin, zones)
			if selected[dst] == nil {
				selected[dst] = make(map[*wargame.Unit]bool)
			}
			cargo := selectCargo(f, plan, dst, zone, selected[dst])
			if len(cargo) == 0 {
				delete(plan.UnloadOptions, dst)
				continue
			}
			for _, u := range cargo {
				selected[dst][u] = true
			}
			plan.Cargo[dst] = cargo
			plan.UnloadZone[dst] = zone
		}
	}
	return plans
}

func addLoadFrom(m map[string]TerritorySet, key string, from TerritorySet) {
	s := m[key]
	if s == nil {
		s = make(TerritorySet)
		m[key] = s
	}
	s.AddAll(from)
}

// landRouteOrigins maps each target to the territories whose land units can
// reach it by land.
func landRouteOrigins(gs *wargame.GameState, land *OptionSet) map[string]TerritorySet {
	out := make(map[string]TerritorySet)
	if land == nil {
		return out
	}
	for u, targets := range land.Reach {
		origin := gs.LocationOf(u)
		for t := range targets {
			addLoadFrom(out, t, NewTerritorySet(origin))
		}
	}
	return out
}

// loadableUnits returns the finder's land units in territory that could
// board t.
func (f *OptionFinder) loadableUnits(territory string, t *wargame.Unit) []*wargame.Unit {
	units := And(
		OwnedBy(f.player),
		IsTransportable(),
		IsTransported().Not(),
		UnitPredicate(func(u *wargame.Unit) bool { return u.Type.TransportCost <= t.Type.TransportCapacity }),
	)
	if !f.lookahead {
		units = units.And(HasMovementLeft())
	}
	return f.state.UnitsMatching(territory, units)
}

func closestZone(f *OptionFinder, origin string, zones []string) string {
	best, bestLen := "", -1
	for _, z := range zones {
		n := 0
		if z != origin {
			r := f.SeaRoute(origin, z)
			if r == nil {
				continue
			}
			n = r.Len()
		}
		if bestLen < 0 || n < bestLen {
			best, bestLen = z, n
		}
	}
	if best == "" {
		return zones[0]
	}
	return best
}

// SeaPath returns the sea zones a transport visits from origin to zone,
// origin included.
func SeaPath(f *OptionFinder, origin, zone string) []string {
	if origin == zone {
		return []string{origin}
	}
	r := f.SeaRoute(origin, zone)
	if r == nil {
		return nil
	}
	return r.All()
}

// SelectCargo picks cargo for plan's transport toward target when unloading
// from zone. Units in taken are never chosen.
func SelectCargo(gs *wargame.GameState, player string, plan *TransportPlan, target, zone string, taken map[*wargame.Unit]bool) []*wargame.Unit {
	return selectCargo(NewOptionFinder(gs, player, true), plan, target, zone, taken)
}

// selectCargo ranks candidates by attack per transport cost and fills the
// transport greedily. If space remains, the last unit is swapped for a
// stronger one that fits. Candidates must sit next to a loadable zone on the
// transport's path to zone.
func selectCargo(f *OptionFinder, plan *TransportPlan, target, zone string, taken map[*wargame.Unit]bool) []*wargame.Unit {
	if len(plan.Fixed) > 0 {
		return append([]*wargame.Unit(nil), plan.Fixed...)
	}
	gs := f.state
	from := plan.UnloadOptions[target]
	path := SeaPath(f, plan.Origin, zone)
	enemySea := HasEnemySeaUnits(gs, f.player)
	reachable := make(TerritorySet)
	for _, z := range path {
		if enemySea(gs.Map.Territory(z)) {
			continue
		}
		for _, n := range gs.Map.Neighbors(z) {
			if from.Has(n) {
				reachable.Add(n)
			}
		}
	}

	var candidates []*wargame.Unit
	for _, l := range reachable.Sorted() {
		for _, u := range f.loadableUnits(l, plan.Transport) {
			if !taken[u] {
				candidates = append(candidates, u)
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ei, ej := cargoEfficiency(candidates[i]), cargoEfficiency(candidates[j])
		if ei != ej {
			return ei > ej
		}
		return candidates[i].ID < candidates[j].ID
	})

	capacity := plan.Transport.Type.TransportCapacity
	var chosen []*wargame.Unit
	for _, u := range candidates {
		if u.Type.TransportCost <= capacity {
			chosen = append(chosen, u)
			capacity -= u.Type.TransportCost
		}
	}

	if capacity > 0 && len(chosen) > 0 {
		last := chosen[len(chosen)-1]
		free := capacity + last.Type.TransportCost
		var better *wargame.Unit
		for _, u := range candidates {
			if containsUnit(chosen, u) || u.Type.TransportCost > free {
				continue
			}
			if wargame.Power(u, true) <= wargame.Power(last, true) {
				continue
			}
			if better == nil || wargame.Power(u, true) > wargame.Power(better, true) {
				better = u
			}
		}
		if better != nil {
			chosen[len(chosen)-1] = better
		}
	}
	return chosen
}

func cargoEfficiency(u *wargame.Unit) float64 {
	return float64(wargame.Power(u, true)) / float64(u.Type.TransportCost)
}
