package bot

import (
	"math"
	"testing"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// capitalBoard is home - mid - cap, where cap is russia's capital worth 10.
func capitalBoard(t *testing.T) *board {
	b := newBoard(t).
		land("home", "germany", 1).
		land("mid", "germany", 1).
		capital("cap", "russia", 10).
		connect([2]string{"home", "mid"}, [2]string{"mid", "cap"})
	b.state()
	return b
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLandValueDecaysWithDistanceToCapital(t *testing.T) {
	b := capitalBoard(t)
	centers := enemyCentersValue(b.gs, "germany", nil, nil)
	if centers["cap"] != 10 {
		t.Fatalf("capital center value = %v, want 10", centers["cap"])
	}
	// Leave cap out of the nearby term so only the capital decay counts.
	got := landValue(b.gs, "germany", "home", centers, nil, NewTerritorySet("cap"))
	if !approx(got, 2.5) {
		t.Errorf("capital contribution two hops away = %v, want 2.5", got)
	}
}

func TestFindTerritoryValues(t *testing.T) {
	b := capitalBoard(t)
	values := FindTerritoryValues(b.gs, "germany", NewTerritorySet(), NewTerritorySet(), []string{"home", "mid", "nowhere"})

	// 10/2^2 from the capital plus its production 10/2^2 as a nearby target.
	if !approx(values["home"], 5) {
		t.Errorf("home = %v, want 5", values["home"])
	}
	// 10/2 + 10/2
	if !approx(values["mid"], 10) {
		t.Errorf("mid = %v, want 10", values["mid"])
	}
	if _, ok := values["nowhere"]; ok {
		t.Error("unknown territories should be skipped")
	}

	held := FindTerritoryValues(b.gs, "germany", NewTerritorySet("mid"), NewTerritorySet(), []string{"mid"})
	if held["mid"] != 0 {
		t.Errorf("territory that can't be held = %v, want 0", held["mid"])
	}
}

func TestSeaValueUsesBaseThree(t *testing.T) {
	b := newBoard(t).
		capital("cap", "russia", 9).
		sea("near", "far").
		connect([2]string{"cap", "near"}, [2]string{"near", "far"})
	gs := b.state()
	centers := enemyCentersValue(gs, "germany", nil, nil)
	got := seaValue(gs, "germany", "far", centers, nil, NewTerritorySet("cap"))
	if !approx(got, 1) {
		t.Errorf("sea value two steps from a capital worth 9 = %v, want 1", got)
	}
}

func TestAttackValue(t *testing.T) {
	b := capitalBoard(t)
	if got := AttackValue(b.gs, "germany", "cap"); got != 30 {
		t.Errorf("capital without factory = %v, want 30", got)
	}
	b.place("cap", "russia", "factory", 1)
	if got := AttackValue(b.gs, "germany", "cap"); got != 60 {
		t.Errorf("capital with factory = %v, want 60", got)
	}
	if got := AttackValue(b.gs, "germany", "nowhere"); got != 0 {
		t.Errorf("unknown territory = %v, want 0", got)
	}
}

func TestAttackValueDiscountsNeutralGarrison(t *testing.T) {
	b := newBoard(t).land("home", "germany", 1).land("swiss", "", 2).connect([2]string{"home", "swiss"})
	gs := b.state()
	empty := AttackValue(gs, "germany", "swiss")
	b.types["militia"] = &wargame.UnitType{Name: "militia", Domain: wargame.Land, Cost: 3, Defense: 2, Movement: 1}
	b.place("swiss", "neutral", "militia", 2)
	if garrisoned := AttackValue(gs, "germany", "swiss"); garrisoned >= empty {
		t.Errorf("garrisoned neutral (%v) should be worth less than empty (%v)", garrisoned, empty)
	}
}
