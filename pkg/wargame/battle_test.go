package wargame

import (
	"context"
	"testing"
)

func battleUnits(owner string, names ...string) []*Unit {
	types := StandardUnitTypes()
	out := make([]*Unit, len(names))
	for i, n := range names {
		out[i] = NewUnit(owner+"-"+n+"-"+string(rune('a'+i)), owner, types[n])
	}
	return out
}

func TestSimulateBounds(t *testing.T) {
	SeedOracleRng(42)
	defer ResetOracleRng()
	calc := NewDiceCalculator()
	tests := []struct {
		name      string
		attackers []*Unit
		defenders []*Unit
	}{
		{"even", battleUnits("a", "infantry", "armour"), battleUnits("d", "infantry", "infantry")},
		{"overwhelming", battleUnits("a", "armour", "armour", "armour", "fighter"), battleUnits("d", "infantry")},
		{"hopeless", battleUnits("a", "infantry"), battleUnits("d", "infantry", "infantry", "artillery", "armour")},
	}
	for _, tt := range tests {
		res, err := calc.Simulate(context.Background(), BattleRequest{
			Attackers: tt.attackers, Defenders: tt.defenders, Iterations: 200, DiceSides: 6,
		})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res.WinPercent < 0 || res.WinPercent > 100 {
			t.Errorf("%s: win%% %f out of range", tt.name, res.WinPercent)
		}
		if len(res.AttackersRemaining) > len(tt.attackers) {
			t.Errorf("%s: more survivors than attackers", tt.name)
		}
	}
}

func TestSimulateIsDeterministicWhenSeeded(t *testing.T) {
	SeedOracleRng(7)
	defer ResetOracleRng()
	req := BattleRequest{
		Attackers:  battleUnits("a", "infantry", "artillery", "armour"),
		Defenders:  battleUnits("d", "infantry", "infantry"),
		Iterations: 100,
	}
	calc := NewDiceCalculator()
	r1, _ := calc.Simulate(context.Background(), req)
	r2, _ := calc.Simulate(context.Background(), req)
	if r1.WinPercent != r2.WinPercent || r1.TUVSwing != r2.TUVSwing {
		t.Errorf("seeded results differ: %+v vs %+v", r1, r2)
	}
}

func TestSimulateLowLuckOverwhelming(t *testing.T) {
	calc := NewDiceCalculator()
	res, err := calc.Simulate(context.Background(), BattleRequest{
		Attackers:  battleUnits("a", "armour", "armour"),
		Defenders:  battleUnits("d", "infantry"),
		Iterations: 50,
		LowLuck:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.WinPercent != 100 {
		t.Errorf("low luck 6 power vs 1 hp: win%% = %f, want 100", res.WinPercent)
	}
}

func TestSimulateRetreatWhenOnlyAirLeft(t *testing.T) {
	SeedOracleRng(3)
	defer ResetOracleRng()
	res, err := NewDiceCalculator().Simulate(context.Background(), BattleRequest{
		Attackers:              battleUnits("a", "fighter", "fighter"),
		Defenders:              battleUnits("d", "infantry", "infantry", "infantry", "infantry", "infantry", "infantry"),
		Iterations:             50,
		RetreatWhenOnlyAirLeft: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.WinPercent != 0 {
		t.Errorf("air-only strafe should never win, got %f", res.WinPercent)
	}
	if res.AverageRounds > 1 {
		t.Errorf("air-only attackers should retreat after the first round, got %f rounds", res.AverageRounds)
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDiceCalculator().Simulate(ctx, BattleRequest{
		Attackers: battleUnits("a", "infantry"), Defenders: battleUnits("d", "infantry"), Iterations: 10,
	})
	if err == nil {
		t.Error("expected context error")
	}
}

func TestApplyHitsMultiHitFirst(t *testing.T) {
	hp := []int{1, 2}
	applyHits(hp, 1)
	if hp[0] != 1 || hp[1] != 1 {
		t.Errorf("hp = %v, want battleship damaged first", hp)
	}
}
