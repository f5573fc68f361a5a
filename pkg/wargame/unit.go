package wargame

import "strconv"

// Domain classifies where a unit type moves and fights.
type Domain int

const (
	Land Domain = iota
	Sea
	Air
)

func (d Domain) String() string {
	switch d {
	case Sea:
		return "sea"
	case Air:
		return "air"
	default:
		return "land"
	}
}

// UnlimitedScramble marks an airbase with no scramble cap.
const UnlimitedScramble = -1

// UnitType holds the static attributes shared by every unit of one type.
type UnitType struct {
	Name      string
	Domain    Domain
	Cost      int // production cost, also used as the unit's TUV
	Attack    int
	Defense   int
	Rolls     int // attack rolls per round; 0 means 1
	Movement  int
	HitPoints int // 0 means 1

	TransportCapacity int
	TransportCost     int // 0 means the unit cannot be carried by sea transports
	CarrierCapacity   int
	CarrierCost       int // 0 means the unit cannot land on carriers

	CanBlitz            bool
	CanScramble         bool
	MaxScrambleDistance int
	IsAirBase           bool
	MaxScrambleCount    int
	IsAA                bool
	IsInfrastructure    bool
	IsFactory           bool
	IsSub               bool
	IsDestroyer         bool
	Bombard             int // shore bombardment strength; 0 means it cannot bombard
}

// IsTransport reports whether the type is a sea transport.
func (ut *UnitType) IsTransport() bool {
	return ut.Domain == Sea && ut.TransportCapacity > 0
}

// IsCarrier reports whether air units can land on this type.
func (ut *UnitType) IsCarrier() bool {
	return ut.Domain == Sea && ut.CarrierCapacity > 0
}

// RollCount returns the attack rolls per round, at least one.
func (ut *UnitType) RollCount() int {
	if ut.Rolls <= 0 {
		return 1
	}
	return ut.Rolls
}

// MaxHitPoints returns the type's hit points, at least one.
func (ut *UnitType) MaxHitPoints() int {
	if ut.HitPoints <= 0 {
		return 1
	}
	return ut.HitPoints
}

// Unit is a single unit on the board.
type Unit struct {
	ID            string
	Owner         string
	Type          *UnitType
	MovementLeft  int
	TransportedBy string // ID of the carrying transport, "" when not aboard
	Scrambled     bool
	Disabled      bool
	Damage        int
}

// NewUnit creates a unit with full movement.
func NewUnit(id, owner string, ut *UnitType) *Unit {
	return &Unit{ID: id, Owner: owner, Type: ut, MovementLeft: ut.Movement}
}

// HitPointsLeft returns the remaining hit points of the unit.
func (u *Unit) HitPointsLeft() int {
	hp := u.Type.MaxHitPoints() - u.Damage
	if hp < 0 {
		return 0
	}
	return hp
}

func (u *Unit) IsLand() bool { return u.Type.Domain == Land }
func (u *Unit) IsSea() bool  { return u.Type.Domain == Sea }
func (u *Unit) IsAir() bool  { return u.Type.Domain == Air }

// IsTransported reports whether the unit is aboard a transport.
func (u *Unit) IsTransported() bool { return u.TransportedBy != "" }

func (u *Unit) String() string {
	return u.Type.Name + "#" + u.ID
}

// UnitIDs returns the IDs of units, in order.
func UnitIDs(units []*Unit) []string {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}

// TUV returns the total unit value of units.
func TUV(units []*Unit) int {
	total := 0
	for _, u := range units {
		total += u.Type.Cost
	}
	return total
}

// TotalHitPoints returns the hit points left across units.
func TotalHitPoints(units []*Unit) int {
	total := 0
	for _, u := range units {
		total += u.HitPointsLeft()
	}
	return total
}

// StandardUnitTypes returns the unit catalogue used by the built-in scenario.
// Each call returns fresh values.
func StandardUnitTypes() map[string]*UnitType {
	types := []*UnitType{
		{Name: "infantry", Domain: Land, Cost: 3, Attack: 1, Defense: 2, Movement: 1, TransportCost: 2},
		{Name: "artillery", Domain: Land, Cost: 4, Attack: 2, Defense: 2, Movement: 1, TransportCost: 3},
		{Name: "armour", Domain: Land, Cost: 5, Attack: 3, Defense: 3, Movement: 2, TransportCost: 3, CanBlitz: true},
		{Name: "aa_gun", Domain: Land, Cost: 6, Movement: 1, TransportCost: 3, IsAA: true},
		{Name: "factory", Domain: Land, Cost: 15, IsInfrastructure: true, IsFactory: true},
		{Name: "airfield", Domain: Land, Cost: 15, IsInfrastructure: true, IsAirBase: true, MaxScrambleCount: 2},
		{Name: "fighter", Domain: Air, Cost: 10, Attack: 3, Defense: 4, Movement: 4, CarrierCost: 1, CanScramble: true, MaxScrambleDistance: 1},
		{Name: "bomber", Domain: Air, Cost: 12, Attack: 4, Defense: 1, Movement: 6},
		{Name: "transport", Domain: Sea, Cost: 7, Movement: 2, TransportCapacity: 5},
		{Name: "submarine", Domain: Sea, Cost: 6, Attack: 2, Defense: 1, Movement: 2, IsSub: true},
		{Name: "destroyer", Domain: Sea, Cost: 8, Attack: 2, Defense: 2, Movement: 2, IsDestroyer: true},
		{Name: "cruiser", Domain: Sea, Cost: 12, Attack: 3, Defense: 3, Movement: 2, Bombard: 3},
		{Name: "carrier", Domain: Sea, Cost: 14, Attack: 1, Defense: 2, Movement: 2, CarrierCapacity: 2},
		{Name: "battleship", Domain: Sea, Cost: 20, Attack: 4, Defense: 4, Movement: 2, HitPoints: 2, Bombard: 4},
	}
	out := make(map[string]*UnitType, len(types))
	for _, ut := range types {
		out[ut.Name] = ut
	}
	return out
}

// unitIDGen hands out sequential unit IDs for scenario builders.
type unitIDGen struct{ next int }

func (g *unitIDGen) id(prefix string) string {
	g.next++
	return prefix + "-" + strconv.Itoa(g.next)
}
