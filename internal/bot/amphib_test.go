package bot

import (
	"testing"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// islandBoard is a port (germany) on sz1, one sea step from sz2 which
// touches a russian island.
func islandBoard(t *testing.T, lightAttack int) *board {
	b := newBoard(t).
		land("port", "germany", 1).
		land("isle", "russia", 2).
		sea("sz1", "sz2").
		connect([2]string{"port", "sz1"}, [2]string{"sz1", "sz2"}, [2]string{"sz2", "isle"})
	b.types["small_transport"] = &wargame.UnitType{Name: "small_transport", Domain: wargame.Sea, Cost: 5, Movement: 2, TransportCapacity: 2}
	b.types["light"] = &wargame.UnitType{Name: "light", Domain: wargame.Land, Cost: 2, Attack: lightAttack, Defense: 1, Movement: 1, TransportCost: 1}
	b.types["heavy"] = &wargame.UnitType{Name: "heavy", Domain: wargame.Land, Cost: 4, Attack: 3, Defense: 2, Movement: 1, TransportCost: 2}
	b.state()
	b.place("isle", "russia", "infantry", 1)
	return b
}

func findAmphib(gs *wargame.GameState, player string) []*TransportPlan {
	f := NewOptionFinder(gs, player, true)
	target := IsEnemyOrCantHold(gs, player, nil)
	return FindAmphibOptions(gs, player, true, target, f.Land(f.Origins(), target))
}

func TestSelectCargoNeverOverfillsTransport(t *testing.T) {
	for _, lightAttack := range []int{1, 2} {
		b := islandBoard(t, lightAttack)
		tr := b.place("sz1", "germany", "small_transport", 1)[0]
		light := b.place("port", "germany", "light", 1)[0]
		heavy := b.place("port", "germany", "heavy", 1)[0]

		plans := findAmphib(b.gs, "germany")
		if len(plans) != 1 || plans[0].Transport != tr {
			t.Fatalf("expected one plan for the transport, got %d", len(plans))
		}
		cargo := plans[0].Cargo["isle"]
		if len(cargo) != 1 {
			t.Fatalf("light attack %d: expected exactly one unit aboard, got %v", lightAttack, wargame.UnitIDs(cargo))
		}
		if cargo[0] != heavy {
			t.Errorf("light attack %d: expected the stronger heavy unit, got %s", lightAttack, cargo[0])
		}
		if containsUnit(cargo, light) && containsUnit(cargo, heavy) {
			t.Error("both units selected beyond capacity")
		}
		if got := CargoCost(cargo); got > tr.Type.TransportCapacity {
			t.Errorf("cargo cost %d exceeds capacity %d", got, tr.Type.TransportCapacity)
		}
		if zone := plans[0].UnloadZone["isle"]; zone != "sz2" {
			t.Errorf("unload zone = %q, want sz2", zone)
		}
	}
}

func TestAmphibNeverDoubleBooksCargo(t *testing.T) {
	b := islandBoard(t, 1)
	b.place("sz1", "germany", "small_transport", 2)
	b.place("port", "germany", "light", 1)
	b.place("port", "germany", "heavy", 1)

	plans := findAmphib(b.gs, "germany")
	seen := make(map[*wargame.Unit]string)
	for _, p := range plans {
		for _, u := range p.Cargo["isle"] {
			if other, ok := seen[u]; ok {
				t.Errorf("%s booked on %s and %s", u, other, p.Transport.ID)
			}
			seen[u] = p.Transport.ID
		}
		if CargoCost(p.Cargo["isle"]) > p.Transport.Type.TransportCapacity {
			t.Errorf("transport %s overfilled", p.Transport.ID)
		}
	}
	if len(seen) != 2 {
		t.Errorf("expected both units shipped on separate transports, got %d", len(seen))
	}
}

func TestAmphibLoadedTransportKeepsCargo(t *testing.T) {
	b := islandBoard(t, 1)
	tr := b.place("sz1", "germany", "small_transport", 1)[0]
	aboard := b.place("sz1", "germany", "heavy", 1)[0]
	aboard.TransportedBy = tr.ID
	b.place("port", "germany", "light", 1)

	plans := findAmphib(b.gs, "germany")
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}
	cargo := plans[0].Cargo["isle"]
	if len(cargo) != 1 || cargo[0] != aboard {
		t.Errorf("mid-voyage transport should land its own cargo, got %v", wargame.UnitIDs(cargo))
	}
}

func TestAmphibDropsTargetsReachableByLand(t *testing.T) {
	b := newBoard(t).
		land("port", "germany", 1).
		land("coast", "russia", 2).
		sea("sz").
		connect([2]string{"port", "sz"}, [2]string{"coast", "sz"}, [2]string{"port", "coast"})
	gs := b.state()
	b.place("sz", "germany", "transport", 1)
	b.place("port", "germany", "infantry", 2)
	b.place("coast", "russia", "infantry", 1)

	for _, p := range findAmphib(gs, "germany") {
		if _, ok := p.UnloadOptions["coast"]; ok {
			t.Error("coast is reachable by land from port and should not need a landing")
		}
	}
}

func TestAmphibStandardScenarioRespectsCapacity(t *testing.T) {
	gs := wargame.StandardScenario()
	plans := findAmphib(gs, "germany")
	targets := 0
	for _, p := range plans {
		for dst, cargo := range p.Cargo {
			targets++
			if CargoCost(cargo) > p.Transport.Type.TransportCapacity {
				t.Errorf("%s -> %s: cargo %d over capacity", p.Transport, dst, CargoCost(cargo))
			}
			zone := p.UnloadZone[dst]
			if !gs.Map.IsAdjacent(zone, dst) {
				t.Errorf("%s -> %s: unload zone %s not adjacent", p.Transport, dst, zone)
			}
		}
	}
	if targets == 0 {
		t.Error("expected the baltic transport to find landings")
	}
	for _, p := range plans {
		if _, ok := p.UnloadOptions["baltic_states"]; ok {
			if p.UnloadOptions["baltic_states"].Has("poland") {
				t.Error("poland reaches baltic_states by land and should be dropped as a load point")
			}
		}
	}
}
