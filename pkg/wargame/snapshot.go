package wargame

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the wire form of a GameState, as served by a remote game server.
type Snapshot struct {
	Round                  int                 `json:"round"`
	DiceSides              int                 `json:"diceSides"`
	LowLuck                bool                `json:"lowLuck"`
	SubRetreatBeforeBattle bool                `json:"subRetreatBeforeBattle"`
	Players                []PlayerSnapshot    `json:"players"`
	Territories            []TerritorySnapshot `json:"territories"`
	Adjacency              [][2]string         `json:"adjacency"`
	Canals                 []CanalSnapshot     `json:"canals,omitempty"`
	UnitTypes              []*UnitType         `json:"unitTypes,omitempty"`
	Units                  []UnitSnapshot      `json:"units"`
}

// PlayerSnapshot lists players in turn order.
type PlayerSnapshot struct {
	Name     string `json:"name"`
	Alliance string `json:"alliance"`
}

type TerritorySnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Water      bool   `json:"water"`
	Owner      string `json:"owner,omitempty"`
	Production int    `json:"production"`
	Capital    string `json:"capital,omitempty"`
	Impassable bool   `json:"impassable,omitempty"`
}

type CanalSnapshot struct {
	Name        string    `json:"name"`
	SeaZones    [2]string `json:"seaZones"`
	Controllers []string  `json:"controllers"`
}

type UnitSnapshot struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Type          string `json:"type"`
	Territory     string `json:"territory"`
	MovementLeft  int    `json:"movementLeft"`
	TransportedBy string `json:"transportedBy,omitempty"`
	Scrambled     bool   `json:"scrambled,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
	Damage        int    `json:"damage,omitempty"`
}

// DecodeSnapshot parses a JSON snapshot and builds its GameState.
func DecodeSnapshot(data []byte) (*GameState, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return FromSnapshot(&s)
}

// FromSnapshot builds a GameState. Unit types missing from s.UnitTypes are
// resolved against StandardUnitTypes.
func FromSnapshot(s *Snapshot) (*GameState, error) {
	m := NewMap()
	for _, t := range s.Territories {
		m.AddTerritory(&Territory{
			ID:         t.ID,
			Name:       t.Name,
			Water:      t.Water,
			Owner:      t.Owner,
			Production: t.Production,
			Capital:    t.Capital,
			Impassable: t.Impassable,
		})
	}
	for _, pair := range s.Adjacency {
		if m.Territory(pair[0]) == nil || m.Territory(pair[1]) == nil {
			return nil, fmt.Errorf("adjacency %s-%s: %w", pair[0], pair[1], ErrUnknownTerritory)
		}
		m.Connect(pair[0], pair[1])
	}
	for _, c := range s.Canals {
		m.AddCanal(Canal{Name: c.Name, SeaZones: c.SeaZones, Controllers: c.Controllers})
	}

	gs := NewGameState(m)
	if s.Round > 0 {
		gs.Round = s.Round
	}
	if s.DiceSides > 0 {
		gs.DiceSides = s.DiceSides
	}
	gs.LowLuck = s.LowLuck
	gs.SubRetreatBeforeBattle = s.SubRetreatBeforeBattle
	for _, p := range s.Players {
		gs.AddPlayer(p.Name, p.Alliance)
	}

	types := StandardUnitTypes()
	for _, ut := range s.UnitTypes {
		types[ut.Name] = ut
	}
	for _, u := range s.Units {
		ut := types[u.Type]
		if ut == nil {
			return nil, fmt.Errorf("unit %s: unknown type %q", u.ID, u.Type)
		}
		unit := &Unit{
			ID:            u.ID,
			Owner:         u.Owner,
			Type:          ut,
			MovementLeft:  u.MovementLeft,
			TransportedBy: u.TransportedBy,
			Scrambled:     u.Scrambled,
			Disabled:      u.Disabled,
			Damage:        u.Damage,
		}
		if err := gs.Place(u.Territory, unit); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
	}
	return gs, nil
}

// Snapshot returns the wire form of gs.
func (gs *GameState) Snapshot() *Snapshot {
	s := &Snapshot{
		Round:                  gs.Round,
		DiceSides:              gs.DiceSides,
		LowLuck:                gs.LowLuck,
		SubRetreatBeforeBattle: gs.SubRetreatBeforeBattle,
	}
	for _, name := range gs.TurnOrder {
		s.Players = append(s.Players, PlayerSnapshot{Name: name, Alliance: gs.Players[name].Alliance})
	}
	for _, id := range gs.Map.IDs() {
		t := gs.Map.Territories[id]
		s.Territories = append(s.Territories, TerritorySnapshot{
			ID:         t.ID,
			Name:       t.Name,
			Water:      t.Water,
			Owner:      t.Owner,
			Production: t.Production,
			Capital:    t.Capital,
			Impassable: t.Impassable,
		})
		for _, n := range gs.Map.Neighbors(id) {
			if id < n {
				s.Adjacency = append(s.Adjacency, [2]string{id, n})
			}
		}
	}
	for _, c := range gs.Map.Canals() {
		s.Canals = append(s.Canals, CanalSnapshot{Name: c.Name, SeaZones: c.SeaZones, Controllers: c.Controllers})
	}
	seen := make(map[string]bool)
	for _, u := range gs.Units() {
		if !seen[u.Type.Name] {
			seen[u.Type.Name] = true
			s.UnitTypes = append(s.UnitTypes, u.Type)
		}
		s.Units = append(s.Units, UnitSnapshot{
			ID:            u.ID,
			Owner:         u.Owner,
			Type:          u.Type.Name,
			Territory:     gs.LocationOf(u),
			MovementLeft:  u.MovementLeft,
			TransportedBy: u.TransportedBy,
			Scrambled:     u.Scrambled,
			Disabled:      u.Disabled,
			Damage:        u.Damage,
		})
	}
	return s
}
