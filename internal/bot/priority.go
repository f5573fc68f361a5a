package bot

import (
	"container/heap"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// overwhelmingStrength is the strength difference above which a neutral
// territory is worth taking even when its value is negative.
const overwhelmingStrength = 500

// attackValue scores taking p's target from the best-case battle result and
// the territory itself. Enemy capitals weigh five times as much, enemy land
// next to the player's capital three times, and neutral land a tenth.
func attackValue(gs *wargame.GameState, player string, odds *Odds, p *AttackPackage) float64 {
	t := gs.Map.Territory(p.Target)
	if t == nil {
		return 0
	}
	isLand := boolf(!t.Water)
	isNeutral := boolf(t.IsNeutral())
	isCanHold := boolf(p.CanHold)
	isAmphib := boolf(p.NeedsAmphib)
	defenders := Filter(maxDefenders(gs, player, p), IsInfrastructure().Not())
	isEmptyLand := boolf(len(defenders) == 0 && !p.NeedsAmphib)
	isFactory := boolf(!t.Water && HasUnits(gs, IsFactory())(t))
	isEnemyCapital := boolf(t.IsCapital())

	capital := gs.CapitalOf(player)
	isEnemyNextToCapital := boolf(capital != "" && gs.Map.IsAdjacent(t.ID, capital) && IsEnemyLand(gs, player)(t))

	territoryValue := (1 + isLand + isCanHold) * (1 + isEmptyLand) * (1 + isFactory) * (1 - 0.5*isAmphib) * float64(t.Production)
	value := (p.MaxEstimate.TUVSwing + territoryValue) * (1 + 4*isEnemyCapital) * (1 + 2*isEnemyNextToCapital) * (1 - 0.9*isNeutral)

	if value <= 0 && !p.NeedsAmphib && t.IsNeutral() {
		diff := odds.StrengthDifference(t.ID, p.MaxUnits, maxDefenders(gs, player, p))
		if diff > overwhelmingStrength {
			value = diff * 0.00001 / (1 - value)
		}
	}
	return value
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// prioritize sets every package's Value and returns the ones worth
// attacking, in input order.
func prioritize(gs *wargame.GameState, player string, odds *Odds, packages []*AttackPackage) []*AttackPackage {
	out := make([]*AttackPackage, 0, len(packages))
	for _, p := range packages {
		p.Value = attackValue(gs, player, odds, p)
		if p.Value <= 0 {
			log.Debug().Str("target", p.Target).Float64("value", p.Value).Msg("Removing target with no attack value")
			continue
		}
		out = append(out, p)
	}
	return out
}

// rankedTarget is a package with its position in the unranked list.
type rankedTarget struct {
	pkg *AttackPackage
	seq int
}

func (r rankedTarget) worseThan(o rankedTarget) bool {
	if r.pkg.Value != o.pkg.Value {
		return r.pkg.Value < o.pkg.Value
	}
	return r.seq > o.seq
}

// targetHeap is a min-heap with the least valuable target on top, used to
// keep the top-N targets.
type targetHeap []rankedTarget

func (h targetHeap) Len() int           { return len(h) }
func (h targetHeap) Less(i, j int) bool { return h[i].worseThan(h[j]) }
func (h targetHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *targetHeap) Push(x any)        { *h = append(*h, x.(rankedTarget)) }
func (h *targetHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topTargets returns at most n packages ordered by descending Value. Equal
// values keep their input order. n <= 0 keeps every package.
func topTargets(packages []*AttackPackage, n int) []*AttackPackage {
	if n <= 0 || n > len(packages) {
		n = len(packages)
	}
	h := &targetHeap{}
	heap.Init(h)
	for i, p := range packages {
		r := rankedTarget{pkg: p, seq: i}
		if h.Len() < n {
			heap.Push(h, r)
		} else if n > 0 && (*h)[0].worseThan(r) {
			(*h)[0] = r
			heap.Fix(h, 0)
		}
	}
	out := make([]*AttackPackage, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(rankedTarget).pkg
	}
	return out
}
