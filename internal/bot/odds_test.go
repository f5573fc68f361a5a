package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// frontBoard is home (germany) next to front (russia).
func frontBoard(t *testing.T) *board {
	b := newBoard(t).
		land("home", "germany", 1).
		land("front", "russia", 3).
		sea("sz").
		connect([2]string{"home", "front"}, [2]string{"home", "sz"}, [2]string{"front", "sz"})
	b.state()
	return b
}

func TestEstimateAttackInfrastructureOnlyDefender(t *testing.T) {
	b := frontBoard(t)
	tank := b.place("home", "germany", "armour", 1)
	factory := b.place("front", "russia", "factory", 1)
	oracle := &powerOracle{}
	odds := NewOdds(b.gs, oracle)

	p := NewPlanner(oracle).findAttackOptions(b.gs, "germany", odds).Package("front")
	if p == nil {
		t.Fatal("expected an attack option against front")
	}
	if len(p.MaxUnits) != 1 || p.MaxUnits[0] != tank[0] {
		t.Fatalf("MaxUnits = %v, want the armour", wargame.UnitIDs(p.MaxUnits))
	}
	defenders := maxDefenders(b.gs, "germany", p)
	if len(defenders) != 1 || defenders[0] != factory[0] {
		t.Fatalf("defenders = %v, want the factory", wargame.UnitIDs(defenders))
	}

	e, err := odds.EstimateAttack(context.Background(), "front", p.MaxUnits, defenders, nil)
	if err != nil {
		t.Fatalf("EstimateAttack: %v", err)
	}
	if e.WinPercent != 100 || !e.HasLandUnitRemaining {
		t.Errorf("expected a certain win with a land survivor, got %+v", e)
	}
	if len(e.AttackersRemaining) != 1 || e.AttackersRemaining[0] != tank[0] {
		t.Errorf("attacker should survive untouched, got %v", wargame.UnitIDs(e.AttackersRemaining))
	}
	if oracle.Calls() != 0 {
		t.Errorf("oracle called %d times for an undefended territory", oracle.Calls())
	}
}

func TestDegenerateBattles(t *testing.T) {
	b := frontBoard(t)
	inf := b.place("home", "germany", "infantry", 1)
	ftr := b.place("home", "germany", "fighter", 1)
	defenders := b.place("front", "russia", "infantry", 1)
	oracle := &powerOracle{}
	odds := NewOdds(b.gs, oracle)
	ctx := context.Background()

	tests := []struct {
		name      string
		territory string
		attackers []*wargame.Unit
		defenders []*wargame.Unit
		want      float64
	}{
		{"no attackers", "front", nil, defenders, 0},
		{"unknown territory", "nowhere", inf, defenders, 0},
		{"air only over empty land", "front", ftr, nil, 0},
		{"empty land", "front", inf, nil, 100},
		{"empty sea", "sz", ftr, nil, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := odds.Calculate(ctx, tt.territory, tt.attackers, tt.defenders, nil, false)
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			if e.WinPercent != tt.want {
				t.Errorf("win = %v, want %v", e.WinPercent, tt.want)
			}
		})
	}
	if oracle.Calls() != 0 {
		t.Errorf("oracle called %d times for degenerate battles", oracle.Calls())
	}
}

func TestSubsRetreatBeforeBattle(t *testing.T) {
	b := frontBoard(t)
	cruiser := b.place("sz", "germany", "cruiser", 1)
	subs := b.place("sz", "russia", "submarine", 2)
	b.gs.SubRetreatBeforeBattle = true
	oracle := &powerOracle{}

	e, err := NewOdds(b.gs, oracle).Calculate(context.Background(), "sz", cruiser, subs, nil, false)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if e.WinPercent != 0 || oracle.Calls() != 0 {
		t.Errorf("subs should submerge without a battle, got %+v after %d calls", e, oracle.Calls())
	}
}

func TestEstimateAttackPrefilterSkipsHopelessBattles(t *testing.T) {
	b := frontBoard(t)
	inf := b.place("home", "germany", "infantry", 1)
	defenders := b.place("front", "russia", "infantry", 6)
	oracle := &powerOracle{}

	e, err := NewOdds(b.gs, oracle).EstimateAttack(context.Background(), "front", inf, defenders, nil)
	if err != nil {
		t.Fatalf("EstimateAttack: %v", err)
	}
	if e.WinPercent != 0 || e.TUVSwing >= 0 {
		t.Errorf("expected a hopeless estimate, got %+v", e)
	}
	if oracle.Calls() != 0 {
		t.Errorf("oracle called %d times for a hopeless attack", oracle.Calls())
	}
}

func TestEstimateDefendPrefilterSkipsSafeDefense(t *testing.T) {
	b := frontBoard(t)
	attackers := b.place("home", "germany", "armour", 6)
	defenders := b.place("front", "russia", "infantry", 1)
	oracle := &powerOracle{}

	e, err := NewOdds(b.gs, oracle).EstimateDefend(context.Background(), "front", attackers, defenders, nil)
	if err != nil {
		t.Fatalf("EstimateDefend: %v", err)
	}
	if e.WinPercent != 100 || !e.HasLandUnitRemaining {
		t.Errorf("expected an overwhelming attack, got %+v", e)
	}
	if oracle.Calls() != 0 {
		t.Errorf("oracle called %d times for a lost defense", oracle.Calls())
	}
}

func TestCalculateClampsWinPercent(t *testing.T) {
	for _, win := range []float64{-20, 0, 55, 100, 140} {
		b := frontBoard(t)
		att := b.place("home", "germany", "armour", 2)
		def := b.place("front", "russia", "infantry", 2)
		e, err := NewOdds(b.gs, &fixedOracle{win: win}).Calculate(context.Background(), "front", att, def, nil, false)
		if err != nil {
			t.Fatalf("Calculate: %v", err)
		}
		if e.WinPercent < 0 || e.WinPercent > 100 {
			t.Errorf("oracle win %v produced %v outside [0, 100]", win, e.WinPercent)
		}
	}
}

func TestCalculateMemoizesByComposition(t *testing.T) {
	b := frontBoard(t)
	first := b.place("home", "germany", "armour", 2)
	second := b.place("home", "germany", "armour", 2)
	def := b.place("front", "russia", "infantry", 2)
	oracle := &powerOracle{}
	odds := NewOdds(b.gs, oracle)
	ctx := context.Background()

	e1, err := odds.Calculate(ctx, "front", first, def, nil, false)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	e2, err := odds.Calculate(ctx, "front", second, def, nil, false)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if oracle.Calls() != 1 {
		t.Errorf("expected one oracle call for equal compositions, got %d", oracle.Calls())
	}
	if e1.WinPercent != e2.WinPercent {
		t.Errorf("memoized win differs: %v vs %v", e1.WinPercent, e2.WinPercent)
	}
	// Survivors are rebound onto the units actually passed in.
	for _, u := range e2.AttackersRemaining {
		if !unitSet(second)[u] {
			t.Errorf("survivor %s is not one of the second attackers", u)
		}
	}

	if _, err := odds.Calculate(ctx, "front", first[:1], def, nil, false); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if oracle.Calls() != 2 {
		t.Errorf("different composition should hit the oracle, got %d calls", oracle.Calls())
	}
}

func TestCalculateUsesCrossPassCache(t *testing.T) {
	b := frontBoard(t)
	att := b.place("home", "germany", "armour", 2)
	def := b.place("front", "russia", "infantry", 2)
	cache := newMemOddsCache()
	ctx := context.Background()

	first := &powerOracle{}
	if _, err := NewOdds(b.gs, first, WithOddsCache(cache)).Calculate(ctx, "front", att, def, nil, false); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if first.Calls() != 1 || cache.sets != 1 {
		t.Fatalf("expected one simulation stored, got %d calls and %d sets", first.Calls(), cache.sets)
	}

	second := &powerOracle{}
	e, err := NewOdds(b.gs, second, WithOddsCache(cache)).Calculate(ctx, "front", att, def, nil, false)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if second.Calls() != 0 {
		t.Errorf("a new pass should reuse the cached estimate, got %d calls", second.Calls())
	}
	if e.WinPercent != 100 || len(e.AttackersRemaining) != 2 {
		t.Errorf("unexpected cached estimate %+v", e)
	}
}

func TestCalculateKeysByOwner(t *testing.T) {
	b := frontBoard(t)
	att := b.place("home", "germany", "armour", 2)
	def := b.place("front", "russia", "infantry", 2)
	cache := newMemOddsCache()
	oracle := &powerOracle{}
	odds := NewOdds(b.gs, oracle, WithOddsCache(cache))
	ctx := context.Background()

	if _, err := odds.Calculate(ctx, "front", att, def, nil, false); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	b.gs.Map.Territory("front").Owner = "britain"
	if _, err := odds.Calculate(ctx, "front", att, def, nil, false); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	b.gs.Map.Territory("front").Owner = ""
	if _, err := odds.Calculate(ctx, "front", att, def, nil, false); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if oracle.Calls() != 3 || len(cache.recs) != 3 {
		t.Errorf("each owner should get its own entry, got %d calls and %d cached", oracle.Calls(), len(cache.recs))
	}
}

func TestCalculateOracleFailure(t *testing.T) {
	b := frontBoard(t)
	att := b.place("home", "germany", "armour", 2)
	def := b.place("front", "russia", "infantry", 2)
	boom := errors.New("boom")

	_, err := NewOdds(b.gs, &powerOracle{err: boom}).Calculate(context.Background(), "front", att, def, nil, false)
	if !errors.Is(err, ErrOracleUnavailable) || !errors.Is(err, boom) {
		t.Errorf("expected ErrOracleUnavailable wrapping the cause, got %v", err)
	}

	_, err = NewOdds(b.gs, nil).Calculate(context.Background(), "front", att, def, nil, false)
	if !errors.Is(err, ErrOracleUnavailable) {
		t.Errorf("nil oracle should be unavailable, got %v", err)
	}
}

func TestStrengthDifference(t *testing.T) {
	b := frontBoard(t)
	att := b.place("home", "germany", "armour", 3)
	def := b.place("front", "russia", "infantry", 1)
	factory := b.place("front", "russia", "factory", 1)
	odds := NewOdds(b.gs, nil)

	if got := odds.StrengthDifference("front", nil, def); got != 0 {
		t.Errorf("no attackers = %v, want 0", got)
	}
	if got := odds.StrengthDifference("front", att, factory); got != 100 {
		t.Errorf("infrastructure only = %v, want 100", got)
	}
	even := odds.StrengthDifference("front", def, def)
	strong := odds.StrengthDifference("front", att, def)
	if strong <= even {
		t.Errorf("three armour vs one infantry (%v) should beat an even fight (%v)", strong, even)
	}
}

type constStrength float64

func (c constStrength) Strength(*wargame.Territory, []*wargame.Unit, []*wargame.Unit, bool, int) float64 {
	return float64(c)
}

func TestWithStrengthEstimator(t *testing.T) {
	b := frontBoard(t)
	inf := b.place("home", "germany", "infantry", 1)
	odds := NewOdds(b.gs, nil, WithStrengthEstimator(constStrength(7)))
	if got := odds.EstimateStrength("front", inf, nil, true); got != 7 {
		t.Errorf("EstimateStrength = %v, want 7", got)
	}
	if got := odds.StrengthDifference("front", inf, inf); got != 50 {
		t.Errorf("equal strengths should be an even fight, got %v", got)
	}
}
