package bot

import (
	"sort"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// TerritorySet is a set of territory IDs.
type TerritorySet map[string]struct{}

// NewTerritorySet returns a set holding ids.
func NewTerritorySet(ids ...string) TerritorySet {
	s := make(TerritorySet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s TerritorySet) Add(id string)    { s[id] = struct{}{} }
func (s TerritorySet) Remove(id string) { delete(s, id) }

func (s TerritorySet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// AddAll adds every member of o.
func (s TerritorySet) AddAll(o TerritorySet) {
	for id := range o {
		s[id] = struct{}{}
	}
}

// Sorted returns the members in ascending order.
func (s TerritorySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// UnitOptionIndex maps a unit to the targets it can reach.
type UnitOptionIndex map[*wargame.Unit]TerritorySet

// Add records that u can reach target.
func (idx UnitOptionIndex) Add(u *wargame.Unit, target string) {
	s := idx[u]
	if s == nil {
		s = make(TerritorySet)
		idx[u] = s
	}
	s.Add(target)
}

// Units returns the indexed units ordered by ID.
func (idx UnitOptionIndex) Units() []*wargame.Unit {
	out := make([]*wargame.Unit, 0, len(idx))
	for u := range idx {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Memo is a lazily computed value with explicit invalidation.
type Memo[T any] struct {
	value T
	ok    bool
}

// Get returns the memoized value and whether it is set.
func (m *Memo[T]) Get() (T, bool) { return m.value, m.ok }

// Set stores v.
func (m *Memo[T]) Set(v T) { m.value, m.ok = v, true }

// Clear drops the stored value.
func (m *Memo[T]) Clear() {
	var zero T
	m.value, m.ok = zero, false
}

// BattleEstimate is the planner's view of one battle outcome.
type BattleEstimate struct {
	WinPercent           float64
	TUVSwing             float64
	AttackersRemaining   []*wargame.Unit
	DefendersRemaining   []*wargame.Unit
	HasLandUnitRemaining bool
	AverageRounds        float64
}

// Thresholds are the win percentages the planner accepts.
type Thresholds struct {
	Win    float64
	MinWin float64
}

// CurrentlyWins reports whether the estimate clears th.Win with a unit that
// can hold the territory left.
func (e BattleEstimate) CurrentlyWins(th Thresholds) bool {
	return e.WinPercent >= th.Win && e.HasLandUnitRemaining
}

// AttackPackage is the aggregation node for one target territory.
type AttackPackage struct {
	Target string

	Units     []*wargame.Unit // committed attackers
	Amphib    []*wargame.Unit // committed amphibious cargo
	Bombard   []*wargame.Unit // committed bombarding units
	Transport map[*wargame.Unit]*TransportPlan

	MaxUnits         []*wargame.Unit
	MaxAmphibUnits   []*wargame.Unit
	AmphibTransport  map[*wargame.Unit]*wargame.Unit // cargo -> transport
	MaxBombardUnits  []*wargame.Unit
	BombardFrom      map[*wargame.Unit]string // bombarding unit -> sea zone
	MaxScrambleUnits []*wargame.Unit

	NeedsAmphib bool
	Strafing    bool
	CanHold     bool
	Value       float64

	MaxEstimate BattleEstimate
	memo        Memo[BattleEstimate]
}

func newAttackPackage(target string) *AttackPackage {
	return &AttackPackage{
		Target:          target,
		Transport:       make(map[*wargame.Unit]*TransportPlan),
		AmphibTransport: make(map[*wargame.Unit]*wargame.Unit),
		BombardFrom:     make(map[*wargame.Unit]string),
		CanHold:         true,
	}
}

// Result returns the memoized estimate for the committed units.
func (p *AttackPackage) Result() (BattleEstimate, bool) { return p.memo.Get() }

// SetResult memoizes the estimate for the committed units.
func (p *AttackPackage) SetResult(e BattleEstimate) { p.memo.Set(e) }

// Invalidate clears the memoized estimate. Every mutation of the committed
// attackers or defenders must call it.
func (p *AttackPackage) Invalidate() { p.memo.Clear() }

// CurrentlyWins reports whether the memoized estimate clears th.
func (p *AttackPackage) CurrentlyWins(th Thresholds) bool {
	e, ok := p.memo.Get()
	return ok && e.CurrentlyWins(th)
}

// Attackers returns committed units plus committed amphibious cargo.
func (p *AttackPackage) Attackers() []*wargame.Unit {
	out := make([]*wargame.Unit, 0, len(p.Units)+len(p.Amphib))
	out = append(out, p.Units...)
	return append(out, p.Amphib...)
}

// AddUnit commits u and invalidates the estimate.
func (p *AttackPackage) AddUnit(u *wargame.Unit) {
	p.Units = append(p.Units, u)
	p.Invalidate()
}

// AddAmphib commits cargo carried by plan and invalidates the estimate.
func (p *AttackPackage) AddAmphib(plan *TransportPlan, cargo []*wargame.Unit) {
	p.Transport[plan.Transport] = plan
	p.Amphib = append(p.Amphib, cargo...)
	p.Invalidate()
}

// AddBombard commits a bombarding unit and invalidates the estimate.
func (p *AttackPackage) AddBombard(u *wargame.Unit) {
	p.Bombard = append(p.Bombard, u)
	p.Invalidate()
}

// ClearCommitted drops every committed unit.
func (p *AttackPackage) ClearCommitted() {
	p.Units = nil
	p.Amphib = nil
	p.Bombard = nil
	clear(p.Transport)
	p.Invalidate()
}

// HasAmphib reports whether any amphibious cargo could join.
func (p *AttackPackage) HasAmphib() bool { return len(p.MaxAmphibUnits) > 0 }

func containsUnit(units []*wargame.Unit, u *wargame.Unit) bool {
	for _, x := range units {
		if x == u {
			return true
		}
	}
	return false
}

func addUnique(units []*wargame.Unit, add ...*wargame.Unit) []*wargame.Unit {
	for _, u := range add {
		if !containsUnit(units, u) {
			units = append(units, u)
		}
	}
	return units
}

func removeUnit(units []*wargame.Unit, u *wargame.Unit) []*wargame.Unit {
	for i, x := range units {
		if x == u {
			return append(units[:i:i], units[i+1:]...)
		}
	}
	return units
}
