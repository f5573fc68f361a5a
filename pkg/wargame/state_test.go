package wargame

import (
	"context"
	"errors"
	"testing"
)

func TestRelationships(t *testing.T) {
	gs := StandardScenario()
	if !gs.IsAllied("germany", "italy") {
		t.Error("germany and italy should be allied")
	}
	if !gs.IsEnemy("germany", "russia") {
		t.Error("germany and russia should be enemies")
	}
	if gs.IsEnemy("germany", "") {
		t.Error("neutral owner is not an enemy")
	}
	if got := gs.CapitalOf("russia"); got != "moscow" {
		t.Errorf("CapitalOf(russia) = %q", got)
	}
}

func TestOtherPlayersInTurnOrder(t *testing.T) {
	gs := StandardScenario()
	got := gs.OtherPlayersInTurnOrder("russia")
	want := []string{"britain", "italy", "germany"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if !gs.IsTurnFirst("germany", "russia", "italy") {
		t.Error("russia moves before italy after germany")
	}
	if gs.IsTurnFirst("germany", "italy", "britain") {
		t.Error("italy does not move before britain after germany")
	}
}

func TestCanalBlocks(t *testing.T) {
	gs := StandardScenario()
	if !gs.CanalBlocks("italy", "med_east", "red_sea") {
		t.Error("suez should be closed to italy while britain holds egypt")
	}
	if gs.CanalBlocks("britain", "red_sea", "med_east") {
		t.Error("suez should be open to britain")
	}
	gs.Map.Territories["egypt"].Owner = "italy"
	if gs.CanalBlocks("germany", "med_east", "red_sea") {
		t.Error("suez should open to the axis once egypt falls")
	}
}

func TestCloneIsDeep(t *testing.T) {
	gs := StandardScenario()
	c := gs.Clone()
	u := c.UnitsIn("poland")[0]
	u.MovementLeft = 0
	if gs.Unit(u.ID).MovementLeft == 0 {
		t.Error("clone shares units with original")
	}
	r := &Route{Start: "poland", Steps: []string{"ukraine"}}
	if err := c.ApplyMove([]*Unit{c.UnitsIn("poland")[1]}, r, nil); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if len(gs.UnitsIn("ukraine")) != 1 {
		t.Error("move on clone changed original")
	}
}

func TestApplyMoveChecksMovement(t *testing.T) {
	gs := StandardScenario()
	inf := gs.UnitsMatching("berlin", func(u *Unit) bool { return u.Type.Name == "infantry" })[0]
	r := &Route{Start: "berlin", Steps: []string{"poland", "ukraine"}}
	err := gs.ApplyMove([]*Unit{inf}, r, nil)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
}

func TestLoadAdvanceUnload(t *testing.T) {
	gs := StandardScenario()
	exec := NewLocalExecutor(gs)
	ctx := context.Background()
	tr := gs.UnitsMatching("baltic_sea", func(u *Unit) bool { return u.Type.IsTransport() })[0]
	infs := gs.UnitsMatching("berlin", func(u *Unit) bool { return u.Type.Name == "infantry" })[:2]

	load := &Route{Start: "berlin", Steps: []string{"baltic_sea"}}
	if err := exec.Move(ctx, infs, load, tr); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(gs.CargoOf(tr)) != 2 {
		t.Fatalf("cargo = %d, want 2", len(gs.CargoOf(tr)))
	}

	third := gs.UnitsMatching("berlin", func(u *Unit) bool { return u.Type.Name == "armour" })[0]
	if err := exec.Move(ctx, []*Unit{third}, load, tr); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("overloading: err = %v, want ErrIllegalMove", err)
	}

	adv := &Route{Start: "baltic_sea", Steps: []string{"north_sea"}}
	if err := exec.Move(ctx, []*Unit{tr}, adv, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	for _, c := range infs {
		if got := gs.LocationOf(c); got != "north_sea" {
			t.Errorf("cargo %s in %s, want north_sea", c, got)
		}
	}

	unload := &Route{Start: "north_sea", Steps: []string{"london"}}
	if err := exec.Move(ctx, infs, unload, nil); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if got := len(gs.UnitsMatching("london", func(u *Unit) bool { return u.Owner == "germany" })); got != 2 {
		t.Errorf("germans in london = %d, want 2", got)
	}
}
