package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// pruneBoard gives germany two armour next to a lightly held front and a
// heavily held fort.
func pruneBoard(t *testing.T) (*board, []*AttackPackage) {
	b := newBoard(t).
		land("home", "germany", 1).
		land("front", "russia", 3).
		land("fort", "russia", 3).
		connect([2]string{"home", "front"}, [2]string{"home", "fort"})
	b.state()
	tanks := b.place("home", "germany", "armour", 2)
	b.place("front", "russia", "infantry", 1)
	b.place("fort", "russia", "infantry", 6)

	front := newAttackPackage("front")
	front.MaxUnits = tanks
	fort := newAttackPackage("fort")
	fort.MaxUnits = tanks
	return b, []*AttackPackage{front, fort}
}

func TestPruneRemovesUnwinnableTargets(t *testing.T) {
	b, packages := pruneBoard(t)
	pr := NewPruner(b.gs, "germany", NewOdds(b.gs, &powerOracle{}), DefaultThresholds(false), nil, nil)

	kept, removed := pr.Prune(context.Background(), packages)
	if len(kept) != 1 || kept[0].Target != "front" {
		t.Fatalf("kept = %v, want [front]", targetsOf(kept))
	}
	if len(removed) != 1 || removed[0].Target != "fort" {
		t.Errorf("removed = %v, want [fort]", targetsOf(removed))
	}
	if kept[0].MaxEstimate.WinPercent != 100 {
		t.Errorf("front max estimate = %v, want 100", kept[0].MaxEstimate.WinPercent)
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	b, packages := pruneBoard(t)
	pr := NewPruner(b.gs, "germany", NewOdds(b.gs, &powerOracle{}), DefaultThresholds(false), nil, nil).WithWorkers(4)

	kept, _ := pr.Prune(context.Background(), packages)
	again, removed := pr.Prune(context.Background(), kept)
	if len(removed) != 0 {
		t.Errorf("second prune removed %v", targetsOf(removed))
	}
	if len(again) != len(kept) {
		t.Errorf("second prune kept %d of %d", len(again), len(kept))
	}
}

func TestPruneExcludesTargetsWithoutOdds(t *testing.T) {
	b, packages := pruneBoard(t)
	oracle := &powerOracle{err: errors.New("oracle down")}
	pr := NewPruner(b.gs, "germany", NewOdds(b.gs, oracle), DefaultThresholds(false), nil, nil)

	kept, removed := pr.Prune(context.Background(), packages)
	if len(kept) != 0 {
		t.Errorf("kept %v without odds", targetsOf(kept))
	}
	if len(removed) != 2 {
		t.Errorf("removed %d packages, want 2", len(removed))
	}
}

func TestPruneStopsOnCancelledContext(t *testing.T) {
	b, packages := pruneBoard(t)
	oracle := &powerOracle{}
	pr := NewPruner(b.gs, "germany", NewOdds(b.gs, oracle), DefaultThresholds(false), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	kept, _ := pr.Prune(ctx, packages)
	if len(kept) != 0 || oracle.Calls() != 0 {
		t.Errorf("cancelled prune kept %v after %d oracle calls", targetsOf(kept), oracle.Calls())
	}
}

func TestMaxDefendersSkipsAAAndAddsScramble(t *testing.T) {
	b := newBoard(t).land("home", "germany", 1).land("front", "russia", 3).connect([2]string{"home", "front"})
	b.state()
	inf := b.place("front", "russia", "infantry", 1)
	b.place("front", "russia", "aa_gun", 1)
	fighter := b.place("home", "russia", "fighter", 1)

	p := newAttackPackage("front")
	p.MaxScrambleUnits = fighter
	got := NewPruner(b.gs, "germany", NewOdds(b.gs, nil), DefaultThresholds(false), nil, nil).MaxDefenders(p)
	if len(got) != 2 || got[0] != inf[0] || got[1] != fighter[0] {
		t.Errorf("defenders = %v, want infantry then scrambled fighter", got)
	}
}

// strafeOracle lets german attacks kill half the defenders and lose, and
// decides every other battle like powerOracle.
type strafeOracle struct {
	powerOracle
}

func (o *strafeOracle) Simulate(ctx context.Context, req wargame.BattleRequest) (wargame.BattleResult, error) {
	if len(req.Attackers) > 0 && req.Attackers[0].Owner == "germany" {
		o.calls.Add(1)
		return wargame.BattleResult{
			TUVSwing:           float64(wargame.TUV(req.Defenders[len(req.Defenders)/2:])),
			DefendersRemaining: req.Defenders[len(req.Defenders)/2:],
			AverageRounds:      1,
		}, nil
	}
	return o.powerOracle.Simulate(ctx, req)
}

// strafeBoard puts germany and italy on either side of the russian capital
// held by four infantry. Italy's capital is out of reach.
func strafeBoard(t *testing.T, italianArmour int) (*board, *AttackPackage, OtherOptions) {
	b := newBoard(t).
		land("home", "germany", 1).
		capital("rcap", "russia", 8).
		land("istage", "italy", 1).
		capital("icap", "italy", 6).
		connect([2]string{"home", "rcap"}, [2]string{"istage", "rcap"}, [2]string{"icap", "istage"})
	gs := b.state()
	p := newAttackPackage("rcap")
	p.MaxUnits = b.place("home", "germany", "armour", 2)
	b.place("rcap", "russia", "infantry", 4)
	b.place("istage", "italy", "armour", italianArmour)
	allies := FindOtherOptions(gs, []string{"italy"}, func(t *wargame.Territory) bool { return t.ID == "rcap" }, 0)
	return b, p, allies
}

func TestPruneKeepsStrafeAnAllyCanFinish(t *testing.T) {
	b, p, allies := strafeBoard(t, 3)
	pr := NewPruner(b.gs, "germany", NewOdds(b.gs, &strafeOracle{}), DefaultThresholds(false), allies, nil)

	kept, removed := pr.Prune(context.Background(), []*AttackPackage{p})
	if len(kept) != 1 || len(removed) != 0 {
		t.Fatalf("expected rcap kept for italy to finish, kept %d removed %d", len(kept), len(removed))
	}
	if !p.Strafing {
		t.Error("rcap should be marked as a strafing target")
	}
	if p.MaxEstimate.WinPercent != 100 || !p.MaxEstimate.HasLandUnitRemaining {
		t.Errorf("MaxEstimate should be italy's follow-up, got %+v", p.MaxEstimate)
	}
}

func TestPruneRemovesStrafeNoAllyCanFinish(t *testing.T) {
	b, p, allies := strafeBoard(t, 1)
	pr := NewPruner(b.gs, "germany", NewOdds(b.gs, &strafeOracle{}), DefaultThresholds(false), allies, nil)

	kept, removed := pr.Prune(context.Background(), []*AttackPackage{p})
	if len(kept) != 0 || len(removed) != 1 {
		t.Errorf("expected rcap removed, kept %d removed %d", len(kept), len(removed))
	}
}
