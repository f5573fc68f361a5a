package wargame

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned when a move cannot be applied to the state.
var ErrIllegalMove = errors.New("illegal move")

// Player is a seat at the table. Players sharing a non-empty Alliance are
// allied.
type Player struct {
	Name     string
	Alliance string
}

// GameState is a snapshot of the board: map, units, players and rules.
type GameState struct {
	Map       *Map
	Players   map[string]*Player
	TurnOrder []string
	Round     int

	DiceSides              int
	LowLuck                bool
	SubRetreatBeforeBattle bool

	units       map[string]*Unit   // unit ID -> unit
	location    map[string]string  // unit ID -> territory ID
	byTerritory map[string][]*Unit // territory ID -> units in placement order
}

// NewGameState returns an empty state on m with six-sided dice.
func NewGameState(m *Map) *GameState {
	return &GameState{
		Map:         m,
		Players:     make(map[string]*Player),
		Round:       1,
		DiceSides:   6,
		units:       make(map[string]*Unit),
		location:    make(map[string]string),
		byTerritory: make(map[string][]*Unit),
	}
}

// AddPlayer registers a player and appends it to the turn order.
func (gs *GameState) AddPlayer(name, alliance string) {
	if _, ok := gs.Players[name]; !ok {
		gs.TurnOrder = append(gs.TurnOrder, name)
	}
	gs.Players[name] = &Player{Name: name, Alliance: alliance}
}

// Place puts a unit on a territory.
func (gs *GameState) Place(territory string, u *Unit) error {
	if gs.Map.Territory(territory) == nil {
		return fmt.Errorf("place %s: %w", territory, ErrUnknownTerritory)
	}
	if _, dup := gs.units[u.ID]; dup {
		return fmt.Errorf("place %s: duplicate unit id %s", territory, u.ID)
	}
	gs.units[u.ID] = u
	gs.location[u.ID] = territory
	gs.byTerritory[territory] = append(gs.byTerritory[territory], u)
	return nil
}

// Unit returns the unit with the given ID, or nil.
func (gs *GameState) Unit(id string) *Unit {
	return gs.units[id]
}

// Units returns every unit on the board, ordered by territory then placement.
func (gs *GameState) Units() []*Unit {
	var out []*Unit
	for _, id := range gs.Map.IDs() {
		out = append(out, gs.byTerritory[id]...)
	}
	return out
}

// UnitsIn returns the units in a territory. The slice is a copy.
func (gs *GameState) UnitsIn(territory string) []*Unit {
	src := gs.byTerritory[territory]
	out := make([]*Unit, len(src))
	copy(out, src)
	return out
}

// UnitsMatching returns the units in a territory that satisfy pred.
func (gs *GameState) UnitsMatching(territory string, pred func(*Unit) bool) []*Unit {
	var out []*Unit
	for _, u := range gs.byTerritory[territory] {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out
}

// LocationOf returns the territory holding u, or "".
func (gs *GameState) LocationOf(u *Unit) string {
	return gs.location[u.ID]
}

// IsAllied reports whether two players are the same or share an alliance.
func (gs *GameState) IsAllied(a, b string) bool {
	if a == b {
		return true
	}
	pa, pb := gs.Players[a], gs.Players[b]
	if pa == nil || pb == nil {
		return false
	}
	return pa.Alliance != "" && pa.Alliance == pb.Alliance
}

// IsEnemy reports whether two known players are at war. Unowned territory
// ("" owner) is neither allied nor enemy.
func (gs *GameState) IsEnemy(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if gs.Players[a] == nil || gs.Players[b] == nil {
		return false
	}
	return !gs.IsAllied(a, b)
}

// Allies returns the other players allied with player, in turn order.
func (gs *GameState) Allies(player string) []string {
	var out []string
	for _, p := range gs.OtherPlayersInTurnOrder(player) {
		if gs.IsAllied(player, p) {
			out = append(out, p)
		}
	}
	return out
}

// Enemies returns the players at war with player, in turn order.
func (gs *GameState) Enemies(player string) []string {
	var out []string
	for _, p := range gs.OtherPlayersInTurnOrder(player) {
		if gs.IsEnemy(player, p) {
			out = append(out, p)
		}
	}
	return out
}

// CapitalOf returns the capital territory of player, or "".
func (gs *GameState) CapitalOf(player string) string {
	for _, id := range gs.Map.IDs() {
		if gs.Map.Territories[id].Capital == player {
			return id
		}
	}
	return ""
}

// OtherPlayersInTurnOrder returns every other player, starting with the one
// who moves right after player and wrapping around.
func (gs *GameState) OtherPlayersInTurnOrder(player string) []string {
	start := -1
	for i, p := range gs.TurnOrder {
		if p == player {
			start = i
			break
		}
	}
	out := make([]string, 0, len(gs.TurnOrder))
	for i := 1; i <= len(gs.TurnOrder); i++ {
		p := gs.TurnOrder[(start+i+len(gs.TurnOrder))%len(gs.TurnOrder)]
		if p != player {
			out = append(out, p)
		}
	}
	return out
}

// IsTurnFirst reports whether first moves before second, counting from the
// turn after current.
func (gs *GameState) IsTurnFirst(current, first, second string) bool {
	for _, p := range gs.OtherPlayersInTurnOrder(current) {
		switch p {
		case first:
			return true
		case second:
			return false
		}
	}
	return false
}

// ProductionOf sums the production of territories owned by player.
func (gs *GameState) ProductionOf(player string) int {
	total := 0
	for _, t := range gs.Map.Territories {
		if t.Owner == player {
			total += t.Production
		}
	}
	return total
}

// CanalBlocks reports whether a canal between sea zones a and b is closed to
// player.
func (gs *GameState) CanalBlocks(player, a, b string) bool {
	for _, c := range gs.Map.Canals() {
		if !(c.SeaZones[0] == a && c.SeaZones[1] == b) && !(c.SeaZones[0] == b && c.SeaZones[1] == a) {
			continue
		}
		for _, ctl := range c.Controllers {
			t := gs.Map.Territory(ctl)
			if t == nil || !gs.IsAllied(player, t.Owner) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy. Unit types and map topology are shared.
func (gs *GameState) Clone() *GameState {
	c := &GameState{
		Map:                    gs.Map.Clone(),
		Players:                make(map[string]*Player, len(gs.Players)),
		TurnOrder:              append([]string(nil), gs.TurnOrder...),
		Round:                  gs.Round,
		DiceSides:              gs.DiceSides,
		LowLuck:                gs.LowLuck,
		SubRetreatBeforeBattle: gs.SubRetreatBeforeBattle,
		units:                  make(map[string]*Unit, len(gs.units)),
		location:               make(map[string]string, len(gs.location)),
		byTerritory:            make(map[string][]*Unit, len(gs.byTerritory)),
	}
	for name, p := range gs.Players {
		cp := *p
		c.Players[name] = &cp
	}
	for tid, units := range gs.byTerritory {
		cl := make([]*Unit, len(units))
		for i, u := range units {
			cp := *u
			cl[i] = &cp
			c.units[cp.ID] = &cp
			c.location[cp.ID] = tid
		}
		c.byTerritory[tid] = cl
	}
	return c
}

// ApplyMove moves units along route. A non-nil transport loads the units from
// adjacent land into the transport's sea zone. Cargo aboard a moving
// transport travels with it; cargo moved from sea to adjacent land unloads.
func (gs *GameState) ApplyMove(units []*Unit, route *Route, transport *Unit) error {
	if route == nil || route.Len() == 0 {
		return fmt.Errorf("apply move: empty route: %w", ErrIllegalMove)
	}
	if len(units) == 0 {
		return fmt.Errorf("apply move %s: no units: %w", route, ErrIllegalMove)
	}
	for _, s := range route.All() {
		if gs.Map.Territory(s) == nil {
			return fmt.Errorf("apply move %s: %w", route, ErrUnknownTerritory)
		}
	}
	live := make([]*Unit, len(units))
	for i, u := range units {
		lu := gs.units[u.ID]
		if lu == nil {
			return fmt.Errorf("apply move %s: unknown unit %s: %w", route, u.ID, ErrIllegalMove)
		}
		if gs.location[lu.ID] != route.Start {
			return fmt.Errorf("apply move %s: %s is in %s: %w", route, lu, gs.location[lu.ID], ErrIllegalMove)
		}
		live[i] = lu
	}
	if transport != nil {
		return gs.load(live, route, transport)
	}
	start := gs.Map.Territory(route.Start)
	end := gs.Map.Territory(route.End())
	if start.Water && !end.Water {
		return gs.unload(live, route)
	}
	for _, u := range live {
		if u.IsTransported() {
			return fmt.Errorf("apply move %s: %s is aboard %s: %w", route, u, u.TransportedBy, ErrIllegalMove)
		}
		if u.MovementLeft < route.Len() {
			return fmt.Errorf("apply move %s: %s has %d movement left: %w", route, u, u.MovementLeft, ErrIllegalMove)
		}
	}
	for _, u := range live {
		var cargo []*Unit
		if u.Type.IsTransport() {
			cargo = gs.CargoOf(u)
		}
		u.MovementLeft -= route.Len()
		gs.relocate(u, route.End())
		for _, c := range cargo {
			gs.relocate(c, route.End())
		}
	}
	return nil
}

// CargoOf returns the units aboard transport.
func (gs *GameState) CargoOf(transport *Unit) []*Unit {
	return gs.UnitsMatching(gs.location[transport.ID], func(u *Unit) bool {
		return u.TransportedBy == transport.ID
	})
}

func (gs *GameState) load(units []*Unit, route *Route, transport *Unit) error {
	t := gs.units[transport.ID]
	if t == nil || !t.Type.IsTransport() {
		return fmt.Errorf("load %s: %v is not a transport: %w", route, transport, ErrIllegalMove)
	}
	if route.Len() != 1 || gs.location[t.ID] != route.End() {
		return fmt.Errorf("load %s: transport %s is in %s: %w", route, t, gs.location[t.ID], ErrIllegalMove)
	}
	used := 0
	for _, c := range gs.CargoOf(t) {
		used += c.Type.TransportCost
	}
	for _, u := range units {
		if !u.IsLand() || u.Type.TransportCost == 0 {
			return fmt.Errorf("load %s: %s cannot be transported: %w", route, u, ErrIllegalMove)
		}
		used += u.Type.TransportCost
	}
	if used > t.Type.TransportCapacity {
		return fmt.Errorf("load %s: cargo %d exceeds capacity %d: %w", route, used, t.Type.TransportCapacity, ErrIllegalMove)
	}
	for _, u := range units {
		u.TransportedBy = t.ID
		u.MovementLeft = 0
		gs.relocate(u, route.End())
	}
	return nil
}

func (gs *GameState) unload(units []*Unit, route *Route) error {
	if route.Len() != 1 {
		return fmt.Errorf("unload %s: must unload to an adjacent territory: %w", route, ErrIllegalMove)
	}
	for _, u := range units {
		if !u.IsTransported() {
			return fmt.Errorf("unload %s: %s is not aboard a transport: %w", route, u, ErrIllegalMove)
		}
	}
	for _, u := range units {
		u.TransportedBy = ""
		u.MovementLeft = 0
		gs.relocate(u, route.End())
	}
	return nil
}

func (gs *GameState) relocate(u *Unit, to string) {
	from := gs.location[u.ID]
	src := gs.byTerritory[from]
	for i, x := range src {
		if x.ID == u.ID {
			gs.byTerritory[from] = append(src[:i:i], src[i+1:]...)
			break
		}
	}
	gs.location[u.ID] = to
	gs.byTerritory[to] = append(gs.byTerritory[to], u)
}
