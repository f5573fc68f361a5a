package bot

import (
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// Aggregator merges per-domain option sets into one AttackPackage per
// target and keeps the reverse indices the sorter and assigner use.
type Aggregator struct {
	packages map[string]*AttackPackage
	order    []string

	UnitIndex      UnitOptionIndex
	TransportIndex UnitOptionIndex
	BombardIndex   UnitOptionIndex

	plans  map[*wargame.Unit]*TransportPlan
	routes map[*wargame.Unit]map[string]*wargame.Route
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		packages:       make(map[string]*AttackPackage),
		UnitIndex:      make(UnitOptionIndex),
		TransportIndex: make(UnitOptionIndex),
		BombardIndex:   make(UnitOptionIndex),
		plans:          make(map[*wargame.Unit]*TransportPlan),
		routes:         make(map[*wargame.Unit]map[string]*wargame.Route),
	}
}

func (a *Aggregator) pkg(target string) *AttackPackage {
	p := a.packages[target]
	if p == nil {
		p = newAttackPackage(target)
		a.packages[target] = p
		a.order = append(a.order, target)
	}
	return p
}

func (a *Aggregator) setRoute(u *wargame.Unit, target string, r *wargame.Route) {
	if r == nil {
		return
	}
	if a.routes[u] == nil {
		a.routes[u] = make(map[string]*wargame.Route)
	}
	if prev := a.routes[u][target]; prev == nil || r.Len() < prev.Len() {
		a.routes[u][target] = r
	}
}

// Merge adds every unit of set to the MaxUnits of the packages it reaches.
func (a *Aggregator) Merge(set *OptionSet) {
	if set == nil {
		return
	}
	for _, target := range set.Targets {
		p := a.pkg(target)
		for _, u := range set.Max[target] {
			p.MaxUnits = addUnique(p.MaxUnits, u)
			a.UnitIndex.Add(u, target)
			a.setRoute(u, target, set.RouteTo(u, target))
		}
	}
}

// ApplyAmphib fills MaxAmphibUnits from the resolved transport plans.
func (a *Aggregator) ApplyAmphib(plans []*TransportPlan) {
	for _, plan := range plans {
		for _, target := range plan.Targets() {
			cargo := plan.Cargo[target]
			if len(cargo) == 0 {
				continue
			}
			p := a.pkg(target)
			for _, u := range cargo {
				if containsUnit(p.MaxAmphibUnits, u) {
					continue
				}
				p.MaxAmphibUnits = append(p.MaxAmphibUnits, u)
				p.AmphibTransport[u] = plan.Transport
			}
			a.TransportIndex.Add(plan.Transport, target)
			a.plans[plan.Transport] = plan
		}
	}
}

// ApplyBombard fills MaxBombardUnits for packages that have amphibious
// options.
func (a *Aggregator) ApplyBombard(set *OptionSet) {
	if set == nil {
		return
	}
	for _, target := range set.Targets {
		p := a.packages[target]
		if p == nil || !p.HasAmphib() {
			continue
		}
		for _, u := range set.Max[target] {
			r := set.RouteTo(u, target)
			if r == nil {
				continue
			}
			p.MaxBombardUnits = addUnique(p.MaxBombardUnits, u)
			if _, ok := p.BombardFrom[u]; !ok {
				p.BombardFrom[u] = r.End()
			}
			a.BombardIndex.Add(u, target)
			a.setRoute(u, target, r)
		}
	}
}

// ApplyScramble records the enemy air that could scramble to each target.
func (a *Aggregator) ApplyScramble(scramble map[string][]*wargame.Unit) {
	for target, units := range scramble {
		if p := a.packages[target]; p != nil {
			p.MaxScrambleUnits = addUnique(p.MaxScrambleUnits, units...)
			p.Invalidate()
		}
	}
}

// Package returns the package for target, or nil.
func (a *Aggregator) Package(target string) *AttackPackage {
	return a.packages[target]
}

// Packages returns the packages in first-seen order.
func (a *Aggregator) Packages() []*AttackPackage {
	out := make([]*AttackPackage, 0, len(a.order))
	for _, t := range a.order {
		out = append(out, a.packages[t])
	}
	return out
}

// Targets returns the package targets in first-seen order.
func (a *Aggregator) Targets() []string {
	return append([]string(nil), a.order...)
}

// Remove drops the package for target and forgets it in every index.
func (a *Aggregator) Remove(target string) {
	if _, ok := a.packages[target]; !ok {
		return
	}
	delete(a.packages, target)
	for i, t := range a.order {
		if t == target {
			a.order = append(a.order[:i:i], a.order[i+1:]...)
			break
		}
	}
	for _, idx := range []UnitOptionIndex{a.UnitIndex, a.TransportIndex, a.BombardIndex} {
		for u, targets := range idx {
			targets.Remove(target)
			if len(targets) == 0 {
				delete(idx, u)
			}
		}
	}
}

// Plan returns the transport plan for transport, or nil.
func (a *Aggregator) Plan(transport *wargame.Unit) *TransportPlan {
	return a.plans[transport]
}

// RouteTo returns the verified route of u toward target, or nil.
func (a *Aggregator) RouteTo(u *wargame.Unit, target string) *wargame.Route {
	return a.routes[u][target]
}

// MaxUnitsWithAmphib returns MaxUnits plus MaxAmphibUnits of target.
func (a *Aggregator) MaxUnitsWithAmphib(target string) []*wargame.Unit {
	p := a.packages[target]
	if p == nil {
		return nil
	}
	out := append([]*wargame.Unit(nil), p.MaxUnits...)
	return addUnique(out, p.MaxAmphibUnits...)
}

// OtherOptions holds one aggregator per other player, used for allied
// follow-up attacks and enemy reinforcement or counter-attack.
type OtherOptions map[string]*Aggregator

// FindOtherOptions runs a lookahead option search for each player in
// players toward territories matching target, amphibious landings and their
// bombardment included.
func FindOtherOptions(gs *wargame.GameState, players []string, target TerritoryPredicate, bonusRange int) OtherOptions {
	out := make(OtherOptions, len(players))
	for _, p := range players {
		f := NewOptionFinder(gs, p, false).Lookahead().WithBonusRange(bonusRange)
		origins := f.Origins()
		agg := NewAggregator()
		land := f.Land(origins, target)
		agg.Merge(land)
		agg.Merge(f.Naval(origins, target))
		agg.Merge(f.Air(origins, target))

		plans := FindAmphibOptions(gs, p, false, target, land)
		agg.ApplyAmphib(plans)
		agg.ApplyBombard(f.Bombard(origins, plans))
		out[p] = agg
	}
	return out
}

// All returns the package of every player that can reach target, keyed by
// player.
func (o OtherOptions) All(target string) map[string]*AttackPackage {
	out := make(map[string]*AttackPackage)
	for player, agg := range o {
		if p := agg.Package(target); p != nil && len(p.MaxUnits)+len(p.MaxAmphibUnits) > 0 {
			out[player] = p
		}
	}
	return out
}

// Max returns the player whose package toward target carries the most unit
// value, and that package. Ties go to the lower player name.
func (o OtherOptions) Max(target string) (string, *AttackPackage) {
	bestPlayer, best, bestTUV := "", (*AttackPackage)(nil), -1
	for player, p := range o.All(target) {
		tuv := wargame.TUV(p.MaxUnits) + wargame.TUV(p.MaxAmphibUnits)
		if tuv > bestTUV || (tuv == bestTUV && player < bestPlayer) {
			bestPlayer, best, bestTUV = player, p, tuv
		}
	}
	return bestPlayer, best
}
