package wargame

import (
	"errors"
	"testing"
)

func TestNeighborsSortedAndSymmetric(t *testing.T) {
	m := StandardScenario().Map
	for _, id := range m.IDs() {
		prev := ""
		for _, n := range m.Neighbors(id) {
			if n <= prev {
				t.Errorf("neighbors of %s not sorted: %v", id, m.Neighbors(id))
			}
			prev = n
			if !m.IsAdjacent(n, id) {
				t.Errorf("%s -> %s is not symmetric", id, n)
			}
		}
	}
}

func TestDistance(t *testing.T) {
	m := StandardScenario().Map
	tests := []struct {
		a, b string
		want int
	}{
		{"berlin", "berlin", 0},
		{"berlin", "poland", 1},
		{"berlin", "moscow", 3},
		{"london", "norway", 2},
		{"berlin", "nowhere", -1},
	}
	for _, tt := range tests {
		if got := m.Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWithinRespectsPredicate(t *testing.T) {
	m := StandardScenario().Map
	landOnly := func(t *Territory) bool { return !t.Water }
	got := m.Within("berlin", 2, landOnly)
	want := map[string]bool{
		"poland": true, "france": true, "switzerland": true,
		"baltic_states": true, "ukraine": true, "rome": true,
	}
	if len(got) != len(want) {
		t.Fatalf("Within = %v, want %d entries", got, len(want))
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected %s in Within", id)
		}
	}
}

func TestRouteIgnoresEndPredicate(t *testing.T) {
	m := StandardScenario().Map
	ownedByGermany := func(t *Territory) bool { return t.Owner == "germany" }
	r := m.Route("berlin", "baltic_states", ownedByGermany, nil)
	if r == nil {
		t.Fatal("expected a route through poland")
	}
	if r.Len() != 2 || r.Steps[0] != "poland" || r.End() != "baltic_states" {
		t.Errorf("route = %s", r)
	}
}

func TestRouteExcludeAndNoRoute(t *testing.T) {
	m := StandardScenario().Map
	landOnly := func(t *Territory) bool { return !t.Water }
	if r := m.Route("berlin", "moscow", landOnly, map[string]bool{"poland": true}); r != nil {
		t.Errorf("expected no route with poland excluded, got %s", r)
	}
	if r := m.Route("berlin", "london", landOnly, nil); r != nil {
		t.Errorf("expected no land route to london, got %s", r)
	}
	if d := m.DistanceMatching("berlin", "moscow", landOnly); d != 3 {
		t.Errorf("DistanceMatching = %d, want 3", d)
	}
}

func TestIsIsland(t *testing.T) {
	m := StandardScenario().Map
	if !m.IsIsland("london") {
		t.Error("london should be an island")
	}
	if m.IsIsland("berlin") {
		t.Error("berlin should not be an island")
	}
	if m.IsIsland("north_sea") {
		t.Error("sea zones are never islands")
	}
}

func TestNewRouteValidatesSteps(t *testing.T) {
	m := StandardScenario().Map
	landOnly := func(t *Territory) bool { return !t.Water }
	if _, err := NewRoute(m, "berlin", landOnly, "poland", "ukraine"); err != nil {
		t.Fatalf("NewRoute: %v", err)
	}
	if _, err := NewRoute(m, "berlin", landOnly, "ukraine"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("non-adjacent step: err = %v, want ErrNoRoute", err)
	}
	if _, err := NewRoute(m, "berlin", landOnly, "baltic_sea", "norway"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("impassable step: err = %v, want ErrNoRoute", err)
	}
	if _, err := NewRoute(m, "atlantis", landOnly, "poland"); !errors.Is(err, ErrUnknownTerritory) {
		t.Errorf("unknown start: err = %v, want ErrUnknownTerritory", err)
	}
}

func TestCloneSharesTopology(t *testing.T) {
	m := StandardScenario().Map
	c := m.Clone()
	c.Territories["poland"].Owner = "russia"
	if m.Territories["poland"].Owner != "germany" {
		t.Error("clone mutated original territory")
	}
	if c.Distance("berlin", "moscow") != m.Distance("berlin", "moscow") {
		t.Error("clone distances differ")
	}
}
