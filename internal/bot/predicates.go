package bot

import "github.com/freeeve/polite-betrayal/proai/pkg/wargame"

// Predicate is a composable boolean classifier.
type Predicate[T any] func(T) bool

// And returns a predicate that holds when p and every other holds.
func (p Predicate[T]) And(others ...Predicate[T]) Predicate[T] {
	return And(append([]Predicate[T]{p}, others...)...)
}

// Or returns a predicate that holds when p or any other holds.
func (p Predicate[T]) Or(others ...Predicate[T]) Predicate[T] {
	return Or(append([]Predicate[T]{p}, others...)...)
}

// Not negates p.
func (p Predicate[T]) Not() Predicate[T] {
	return Not(p)
}

// And holds when every predicate holds. An empty And always holds.
func And[T any](ps ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range ps {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Or holds when any predicate holds. An empty Or never holds.
func Or[T any](ps ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range ps {
			if p(v) {
				return true
			}
		}
		return false
	}
}

func Not[T any](p Predicate[T]) Predicate[T] {
	return func(v T) bool { return !p(v) }
}

// Filter returns the elements of vs that satisfy p.
func Filter[T any](vs []T, p Predicate[T]) []T {
	var out []T
	for _, v := range vs {
		if p(v) {
			out = append(out, v)
		}
	}
	return out
}

// Any reports whether some element satisfies p.
func Any[T any](vs []T, p Predicate[T]) bool {
	for _, v := range vs {
		if p(v) {
			return true
		}
	}
	return false
}

// All reports whether every element satisfies p. All of an empty slice is true.
func All[T any](vs []T, p Predicate[T]) bool {
	for _, v := range vs {
		if !p(v) {
			return false
		}
	}
	return true
}

type (
	TerritoryPredicate = Predicate[*wargame.Territory]
	UnitPredicate      = Predicate[*wargame.Unit]
)

// Territory predicates.

func IsWater() TerritoryPredicate {
	return func(t *wargame.Territory) bool { return t.Water }
}

func IsLand() TerritoryPredicate {
	return func(t *wargame.Territory) bool { return !t.Water }
}

func IsPassable() TerritoryPredicate {
	return func(t *wargame.Territory) bool { return !t.Impassable }
}

func IsNeutralLand() TerritoryPredicate {
	return func(t *wargame.Territory) bool { return t.IsNeutral() && !t.Impassable }
}

func IsCapital() TerritoryPredicate {
	return func(t *wargame.Territory) bool { return t.IsCapital() }
}

// IsEnemyLand holds for land owned by a player at war with player.
func IsEnemyLand(gs *wargame.GameState, player string) TerritoryPredicate {
	return func(t *wargame.Territory) bool {
		return !t.Water && gs.IsEnemy(player, t.Owner)
	}
}

// IsAlliedLand holds for land owned by player or an ally.
func IsAlliedLand(gs *wargame.GameState, player string) TerritoryPredicate {
	return func(t *wargame.Territory) bool {
		return !t.Water && t.Owner != "" && gs.IsAllied(player, t.Owner)
	}
}

// HasUnits holds when any unit in the territory satisfies pred.
func HasUnits(gs *wargame.GameState, pred UnitPredicate) TerritoryPredicate {
	return func(t *wargame.Territory) bool {
		return Any(gs.UnitsIn(t.ID), pred)
	}
}

func HasEnemyUnits(gs *wargame.GameState, player string) TerritoryPredicate {
	return HasUnits(gs, IsEnemyUnit(gs, player))
}

func HasEnemySeaUnits(gs *wargame.GameState, player string) TerritoryPredicate {
	return HasUnits(gs, IsEnemyUnit(gs, player).And(IsSeaUnit()))
}

// HasEnemyFactory holds for enemy land with a factory.
func HasEnemyFactory(gs *wargame.GameState, player string) TerritoryPredicate {
	return IsEnemyLand(gs, player).And(HasUnits(gs, IsFactory()))
}

// HasEnemyAA holds where an enemy AA unit would fire at overflying aircraft.
func HasEnemyAA(gs *wargame.GameState, player string) TerritoryPredicate {
	return HasUnits(gs, IsEnemyUnit(gs, player).And(IsAA()))
}

// RevokesBlitz holds for enemy land holding any unit, including
// infrastructure.
func RevokesBlitz(gs *wargame.GameState, player string) TerritoryPredicate {
	return IsEnemyLand(gs, player).And(func(t *wargame.Territory) bool {
		return len(gs.UnitsIn(t.ID)) > 0
	})
}

// CanMoveLandInto is the loose land predicate used to enumerate candidate
// destinations: any passable land, enemy or neutral included.
func CanMoveLandInto() TerritoryPredicate {
	return IsLand().And(IsPassable())
}

// CanMoveLandThrough is the strict intermediate-step predicate for u. Every
// land unit may pass allied land free of enemy units; a blitzing unit may
// also cross enemy land that does not revoke blitz.
func CanMoveLandThrough(gs *wargame.GameState, player string, u *wargame.Unit) TerritoryPredicate {
	allied := IsAlliedLand(gs, player).And(IsPassable(), HasEnemyUnits(gs, player).Not())
	if !u.Type.CanBlitz {
		return allied
	}
	blitzable := IsEnemyLand(gs, player).And(IsPassable(), RevokesBlitz(gs, player).Not())
	return allied.Or(blitzable)
}

// CanMoveSeaInto is the loose sea predicate.
func CanMoveSeaInto() TerritoryPredicate {
	return IsWater().And(IsPassable())
}

// CanMoveSeaThrough holds for passable water free of enemy units.
func CanMoveSeaThrough(gs *wargame.GameState, player string) TerritoryPredicate {
	return CanMoveSeaInto().And(HasEnemyUnits(gs, player).Not())
}

// CanMoveAirInto holds for passable territory that is not neutral land.
func CanMoveAirInto() TerritoryPredicate {
	return IsPassable().And(IsNeutralLand().Not())
}

// CanMoveAirThrough additionally avoids enemy AA.
func CanMoveAirThrough(gs *wargame.GameState, player string) TerritoryPredicate {
	return CanMoveAirInto().And(HasEnemyAA(gs, player).Not())
}

// CanLandAir holds for allied land with no enemy units.
func CanLandAir(gs *wargame.GameState, player string) TerritoryPredicate {
	return IsAlliedLand(gs, player).And(IsPassable(), HasEnemyUnits(gs, player).Not())
}

// IsEnemyOrCantHold is the attack target predicate: enemy or neutral land,
// enemy-held sea, or a territory already marked as not holdable.
func IsEnemyOrCantHold(gs *wargame.GameState, player string, cantHold TerritorySet) TerritoryPredicate {
	return Or(
		IsEnemyLand(gs, player),
		IsNeutralLand(),
		IsWater().And(HasEnemyUnits(gs, player)),
		TerritoryPredicate(func(t *wargame.Territory) bool { return cantHold.Has(t.ID) }),
	)
}

// IsAlliedLandWithNoEnemyNeighbors holds for allied land with no enemy land
// next to it.
func IsAlliedLandWithNoEnemyNeighbors(gs *wargame.GameState, player string) TerritoryPredicate {
	enemy := IsEnemyLand(gs, player)
	return IsAlliedLand(gs, player).And(func(t *wargame.Territory) bool {
		return len(gs.Map.NeighborsMatching(t.ID, enemy)) == 0
	})
}

// Unit predicates.

func OwnedBy(player string) UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Owner == player }
}

func IsEnemyUnit(gs *wargame.GameState, player string) UnitPredicate {
	return func(u *wargame.Unit) bool { return gs.IsEnemy(player, u.Owner) }
}

func IsAlliedUnit(gs *wargame.GameState, player string) UnitPredicate {
	return func(u *wargame.Unit) bool { return gs.IsAllied(player, u.Owner) }
}

func IsLandUnit() UnitPredicate { return func(u *wargame.Unit) bool { return u.IsLand() } }
func IsSeaUnit() UnitPredicate  { return func(u *wargame.Unit) bool { return u.IsSea() } }
func IsAirUnit() UnitPredicate  { return func(u *wargame.Unit) bool { return u.IsAir() } }

func HasMovementLeft() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.MovementLeft > 0 }
}

func IsInfrastructure() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsInfrastructure }
}

func IsFactory() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsFactory }
}

func IsAA() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsAA }
}

func IsSub() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsSub }
}

func IsDestroyer() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsDestroyer }
}

func IsTransport() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsTransport() }
}

func IsCarrier() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsCarrier() }
}

func CanBombard() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.Bombard > 0 }
}

func IsTransported() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.IsTransported() }
}

func IsTransportable() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.IsLand() && u.Type.TransportCost > 0 }
}

// CanScramble holds for air units that may scramble and have not yet.
func CanScramble() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.IsAir() && u.Type.CanScramble && !u.Scrambled }
}

// IsActiveAirBase holds for non-disabled airbases.
func IsActiveAirBase() UnitPredicate {
	return func(u *wargame.Unit) bool { return u.Type.IsAirBase && !u.Disabled }
}

// CanBeMovedInCombat holds for own, non-infrastructure, non-AA units with
// movement left that are not aboard a transport.
func CanBeMovedInCombat(player string) UnitPredicate {
	return And(
		OwnedBy(player),
		HasMovementLeft(),
		IsInfrastructure().Not(),
		IsAA().Not(),
		IsTransported().Not(),
	)
}
