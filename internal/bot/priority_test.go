package bot

import (
	"testing"
)

func valued(target string, v float64) *AttackPackage {
	p := newAttackPackage(target)
	p.Value = v
	return p
}

func targetsOf(ps []*AttackPackage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Target
	}
	return out
}

func TestTopTargets(t *testing.T) {
	packages := []*AttackPackage{
		valued("a", 3), valued("b", 7), valued("c", 5), valued("d", 7), valued("e", 1),
	}
	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{"b", "d", "c", "a", "e"}},
		{-1, []string{"b", "d", "c", "a", "e"}},
		{3, []string{"b", "d", "c"}},
		{1, []string{"b"}},
		{10, []string{"b", "d", "c", "a", "e"}},
	}
	for _, tt := range tests {
		got := targetsOf(topTargets(packages, tt.n))
		if len(got) != len(tt.want) {
			t.Errorf("n=%d: got %v, want %v", tt.n, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("n=%d: got %v, want %v", tt.n, got, tt.want)
				break
			}
		}
	}
	if got := topTargets(nil, 3); len(got) != 0 {
		t.Errorf("no packages should give no targets, got %v", targetsOf(got))
	}
}

func TestAttackValueWeighsCapitalsAndThreats(t *testing.T) {
	b := newBoard(t).
		capital("home", "germany", 10).
		land("front", "russia", 3).
		land("far", "russia", 3).
		connect([2]string{"home", "front"}, [2]string{"front", "far"})
	gs := b.state()
	b.place("front", "russia", "infantry", 1)
	b.place("far", "russia", "infantry", 1)
	odds := NewOdds(gs, nil)

	far := newAttackPackage("far")
	// (1 + land + hold) * production 3
	if got := attackValue(gs, "germany", odds, far); got != 9 {
		t.Errorf("plain enemy land = %v, want 9", got)
	}

	front := newAttackPackage("front")
	if got := attackValue(gs, "germany", odds, front); got != 27 {
		t.Errorf("enemy land next to the capital = %v, want 27", got)
	}

	gs.Map.Territory("far").Capital = "russia"
	if got := attackValue(gs, "germany", odds, far); got != 45 {
		t.Errorf("enemy capital = %v, want 45", got)
	}

	far.CanHold = false
	far.NeedsAmphib = true
	far.MaxEstimate.TUVSwing = 4
	// (4 + (1 + land) * 0.5 amphib * 3) * 5 capital
	if got := attackValue(gs, "germany", odds, far); got != 35 {
		t.Errorf("amphibious raid on a capital = %v, want 35", got)
	}
}

func TestPrioritizeDropsWorthlessTargets(t *testing.T) {
	b := newBoard(t).
		land("home", "germany", 1).
		land("front", "russia", 2).
		land("barren", "russia", 0).
		connect([2]string{"home", "front"}, [2]string{"home", "barren"})
	gs := b.state()
	odds := NewOdds(gs, nil)

	keep := newAttackPackage("front")
	drop := newAttackPackage("barren")
	got := prioritize(gs, "germany", odds, []*AttackPackage{drop, keep})
	if len(got) != 1 || got[0] != keep {
		t.Errorf("expected only front to remain, got %v", targetsOf(got))
	}
	if keep.Value <= 0 {
		t.Errorf("front value = %v, want positive", keep.Value)
	}
}
