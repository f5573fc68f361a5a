package bot

import (
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// OptionSet is the result of one option search: the maximum units per
// target, the targets per unit and the concrete route each unit would take.
type OptionSet struct {
	Max     map[string][]*wargame.Unit
	Targets []string // first-seen order
	Reach   UnitOptionIndex
	routes  map[*wargame.Unit]map[string]*wargame.Route
}

func newOptionSet() *OptionSet {
	return &OptionSet{
		Max:    make(map[string][]*wargame.Unit),
		Reach:  make(UnitOptionIndex),
		routes: make(map[*wargame.Unit]map[string]*wargame.Route),
	}
}

func (s *OptionSet) add(u *wargame.Unit, target string, r *wargame.Route) {
	if _, ok := s.Max[target]; !ok {
		s.Targets = append(s.Targets, target)
	}
	if s.Reach[u].Has(target) {
		if prev := s.routes[u][target]; prev != nil && prev.Len() <= r.Len() {
			return
		}
	} else {
		s.Max[target] = append(s.Max[target], u)
		s.Reach.Add(u, target)
	}
	if s.routes[u] == nil {
		s.routes[u] = make(map[string]*wargame.Route)
	}
	s.routes[u][target] = r
}

// RouteTo returns the route u would take toward target, or nil.
func (s *OptionSet) RouteTo(u *wargame.Unit, target string) *wargame.Route {
	return s.routes[u][target]
}

// OptionFinder enumerates legal movement options for one player.
type OptionFinder struct {
	state      *wargame.GameState
	player     string
	combat     bool
	bonusRange int
	lookahead  bool
}

// NewOptionFinder returns a finder for player's combat or non-combat moves.
func NewOptionFinder(gs *wargame.GameState, player string, combat bool) *OptionFinder {
	return &OptionFinder{state: gs, player: player, combat: combat}
}

// WithBonusRange adds n movement to air and sea units. Used to estimate the
// reach of enemies on their next turn.
func (f *OptionFinder) WithBonusRange(n int) *OptionFinder {
	cp := *f
	cp.bonusRange = n
	return &cp
}

// Lookahead returns a copy that plans a whole future turn: every unit has
// its full movement and air units skip the landing check.
func (f *OptionFinder) Lookahead() *OptionFinder {
	cp := *f
	cp.lookahead = true
	cp.combat = false
	return &cp
}

func (f *OptionFinder) moves(u *wargame.Unit) int {
	if f.lookahead {
		return u.Type.Movement
	}
	return u.MovementLeft
}

// Origins returns the territories holding units of the finder's player.
func (f *OptionFinder) Origins() []string {
	var out []string
	owned := OwnedBy(f.player)
	for _, id := range f.state.Map.IDs() {
		if Any(f.state.UnitsIn(id), owned) {
			out = append(out, id)
		}
	}
	return out
}

func (f *OptionFinder) movable() UnitPredicate {
	if f.lookahead {
		return OwnedBy(f.player).And(IsInfrastructure().Not(), IsAA().Not(), IsTransported().Not())
	}
	if f.combat {
		return CanBeMovedInCombat(f.player)
	}
	return OwnedBy(f.player).And(HasMovementLeft(), IsInfrastructure().Not(), IsTransported().Not())
}

// Land finds land unit options toward targets matching target.
func (f *OptionFinder) Land(origins []string, target TerritoryPredicate) *OptionSet {
	set := newOptionSet()
	m := f.state.Map
	units := f.movable().And(IsLandUnit())
	for _, origin := range origins {
		for _, u := range f.state.UnitsMatching(origin, units) {
			mv := f.moves(u)
			for _, t := range m.Within(origin, mv, CanMoveLandInto()) {
				if !target(m.Territory(t)) {
					continue
				}
				r := f.LandRoute(u, origin, t)
				if r == nil || r.Len() > mv {
					continue
				}
				set.add(u, t, r)
			}
		}
	}
	return set
}

// LandRoute returns a legal land route for u, or nil. Intermediate steps must
// satisfy the unit's through predicate, so a non-blitzing unit only enters
// enemy land on the last step.
func (f *OptionFinder) LandRoute(u *wargame.Unit, from, to string) *wargame.Route {
	return f.state.Map.Route(from, to, CanMoveLandThrough(f.state, f.player, u), nil)
}

// Naval finds sea unit options toward targets matching target. Transports
// are handled by the amphibious resolver.
func (f *OptionFinder) Naval(origins []string, target TerritoryPredicate) *OptionSet {
	set := newOptionSet()
	m := f.state.Map
	units := f.movable().And(IsSeaUnit(), IsTransport().Not())
	for _, origin := range origins {
		for _, u := range f.state.UnitsMatching(origin, units) {
			rng := f.moves(u) + f.bonusRange
			for _, t := range m.Within(origin, rng, CanMoveSeaInto()) {
				if !target(m.Territory(t)) {
					continue
				}
				r := f.SeaRoute(origin, t)
				if r == nil || r.Len() > rng {
					continue
				}
				set.add(u, t, r)
			}
		}
	}
	return set
}

// SeaRoute returns a route through enemy-free water that does not cross a
// closed canal, or nil.
func (f *OptionFinder) SeaRoute(from, to string) *wargame.Route {
	return f.routeAvoidingCanals(from, to, CanMoveSeaThrough(f.state, f.player))
}

// routeAvoidingCanals retries the route search, excluding the intermediate
// steps of any route that crosses a closed canal, until a clean route is
// found or none remains. A closed canal on a direct route gives up. Each
// pass excludes at least one more territory, so the loop is bounded by the
// map size.
func (f *OptionFinder) routeAvoidingCanals(from, to string, through TerritoryPredicate) *wargame.Route {
	m := f.state.Map
	excluded := make(map[string]bool)
	for range len(m.IDs()) + 1 {
		r := m.Route(from, to, through, excluded)
		if r == nil {
			return nil
		}
		if !f.crossesClosedCanal(r) {
			return r
		}
		middle := r.Intermediate()
		if len(middle) == 0 {
			return nil
		}
		for _, id := range middle {
			excluded[id] = true
		}
	}
	return nil
}

func (f *OptionFinder) crossesClosedCanal(r *wargame.Route) bool {
	all := r.All()
	for i := 1; i < len(all); i++ {
		if f.state.CanalBlocks(f.player, all[i-1], all[i]) {
			return true
		}
	}
	return false
}

// Air finds air unit options toward targets matching target. In combat, an
// option is kept only when the unit can still land afterwards.
func (f *OptionFinder) Air(origins []string, target TerritoryPredicate) *OptionSet {
	set := newOptionSet()
	m := f.state.Map
	through := CanMoveAirThrough(f.state, f.player)
	if f.bonusRange > 0 {
		through = CanMoveAirInto()
	}
	units := f.movable().And(IsAirUnit())
	for _, origin := range origins {
		for _, u := range f.state.UnitsMatching(origin, units) {
			rng := f.moves(u) + f.bonusRange
			for _, t := range m.Within(origin, rng, CanMoveAirInto()) {
				if !target(m.Territory(t)) {
					continue
				}
				r := m.Route(origin, t, through, nil)
				if r == nil || r.Len() > rng {
					continue
				}
				if f.combat && !f.canLand(u, t, rng-r.Len(), through) {
					continue
				}
				set.add(u, t, r)
			}
		}
	}
	return set
}

// canLand reports whether u can reach a landing spot within remaining moves
// of target: allied land free of enemies other than the target, or a sea
// zone with spare allied carrier capacity.
func (f *OptionFinder) canLand(u *wargame.Unit, target string, remaining int, through TerritoryPredicate) bool {
	if remaining <= 0 {
		return false
	}
	m := f.state.Map
	landable := CanLandAir(f.state, f.player)
	for _, id := range m.Within(target, remaining, CanMoveAirInto()) {
		if id == target {
			continue
		}
		t := m.Territory(id)
		if t.Water {
			if u.Type.CarrierCost > 0 && f.carrierSpace(id) >= u.Type.CarrierCost {
				return true
			}
			continue
		}
		if !landable(t) {
			continue
		}
		if r := m.Route(target, id, through, nil); r != nil && r.Len() <= remaining {
			return true
		}
	}
	return false
}

// carrierSpace returns allied carrier capacity in a sea zone minus the
// carrier cost of air units already there.
func (f *OptionFinder) carrierSpace(seaZone string) int {
	space := 0
	for _, u := range f.state.UnitsIn(seaZone) {
		if !f.state.IsAllied(f.player, u.Owner) {
			continue
		}
		if u.Type.IsCarrier() {
			space += u.Type.CarrierCapacity
		}
		if u.IsAir() {
			space -= u.Type.CarrierCost
		}
	}
	return space
}

// Bombard finds bombarding sea units that can reach a sea zone used to unload
// amphibious cargo, and records the targets next to that zone.
func (f *OptionFinder) Bombard(origins []string, plans []*TransportPlan) *OptionSet {
	set := newOptionSet()
	unloadFrom := make(TerritorySet)
	unloadTo := make(TerritorySet)
	for _, p := range plans {
		for zone := range p.SeaOptions {
			unloadFrom.Add(zone)
		}
		for t := range p.UnloadOptions {
			unloadTo.Add(t)
		}
	}
	if len(unloadTo) == 0 {
		return set
	}
	m := f.state.Map
	units := f.movable().And(IsSeaUnit(), CanBombard())
	for _, origin := range origins {
		for _, u := range f.state.UnitsMatching(origin, units) {
			mv := f.moves(u)
			zones := append([]string{origin}, m.Within(origin, mv, CanMoveSeaInto())...)
			for _, zone := range zones {
				if !unloadFrom.Has(zone) {
					continue
				}
				r := &wargame.Route{Start: origin}
				if zone != origin {
					r = f.SeaRoute(origin, zone)
					if r == nil || r.Len() > mv {
						continue
					}
				}
				for _, t := range m.Neighbors(zone) {
					if unloadTo.Has(t) {
						set.add(u, t, r)
					}
				}
			}
		}
	}
	return set
}
