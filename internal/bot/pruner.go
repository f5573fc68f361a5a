package bot

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// DefaultThresholds returns the win percentages used when none are
// configured. Dice games have wider variance, so the bar is lower.
func DefaultThresholds(lowLuck bool) Thresholds {
	if lowLuck {
		return Thresholds{Win: 95, MinWin: 75}
	}
	return Thresholds{Win: 90, MinWin: 65}
}

// Pruner drops packages that cannot be won even with every available unit.
type Pruner struct {
	state   *wargame.GameState
	player  string
	odds    *Odds
	th      Thresholds
	allies  OtherOptions
	enemies OtherOptions // enemy reinforcement options
	workers int
}

// NewPruner returns a pruner for player. allies and enemies may be nil, in
// which case no strafing follow-up is considered.
func NewPruner(gs *wargame.GameState, player string, odds *Odds, th Thresholds, allies, enemies OtherOptions) *Pruner {
	return &Pruner{state: gs, player: player, odds: odds, th: th, allies: allies, enemies: enemies, workers: 1}
}

// WithWorkers evaluates up to n packages concurrently.
func (pr *Pruner) WithWorkers(n int) *Pruner {
	pr.workers = max(n, 1)
	return pr
}

// Prune evaluates every package with its maximum attackers and splits them
// into kept and removed, preserving input order.
func (pr *Pruner) Prune(ctx context.Context, packages []*AttackPackage) (kept, removed []*AttackPackage) {
	keep := make([]bool, len(packages))
	var wg sync.WaitGroup
	sem := make(chan struct{}, pr.workers)
	for i, p := range packages {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, p *AttackPackage) {
			defer wg.Done()
			defer func() { <-sem }()
			keep[idx] = pr.evaluate(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for i, p := range packages {
		if keep[i] {
			kept = append(kept, p)
		} else {
			removed = append(removed, p)
		}
	}
	return kept, removed
}

func (pr *Pruner) evaluate(ctx context.Context, p *AttackPackage) bool {
	p.NeedsAmphib = false
	p.Strafing = false
	if ctx.Err() != nil {
		return false
	}

	defenders := pr.MaxDefenders(p)
	e, err := pr.selfResult(ctx, p, defenders)
	if err != nil {
		log.Warn().Err(err).Str("target", p.Target).Msg("Excluding target, odds unavailable")
		return false
	}
	if e.WinPercent < pr.th.MinWin && pr.isEnemyCapitalOrFactory(p.Target) {
		allied, ok, err := pr.alliedAfterStrafe(ctx, p, defenders)
		if err != nil {
			log.Warn().Err(err).Str("target", p.Target).Msg("Skipping allied follow-up, odds unavailable")
		} else if ok {
			e = allied
		}
	}
	p.MaxEstimate = e

	if e.WinPercent < pr.th.MinWin {
		log.Debug().Str("target", p.Target).Float64("win", e.WinPercent).Msg("Removing target that can't be conquered")
		return false
	}
	if p.Strafing && (e.WinPercent < pr.th.Win || !e.HasLandUnitRemaining) {
		log.Debug().Str("target", p.Target).Float64("win", e.WinPercent).Msg("Removing strafing target")
		return false
	}
	return true
}

// MaxDefenders returns the enemy units in the target, leaving out AA, plus
// any air that could scramble in.
func (pr *Pruner) MaxDefenders(p *AttackPackage) []*wargame.Unit {
	return maxDefenders(pr.state, pr.player, p)
}

func maxDefenders(gs *wargame.GameState, player string, p *AttackPackage) []*wargame.Unit {
	defenders := gs.UnitsMatching(p.Target, IsEnemyUnit(gs, player).And(IsAA().Not()))
	return addUnique(defenders, p.MaxScrambleUnits...)
}

// selfResult estimates the package with every unit that can reach it. Amphibious
// cargo and bombardment are added only when the direct attack falls short.
func (pr *Pruner) selfResult(ctx context.Context, p *AttackPackage, defenders []*wargame.Unit) (BattleEstimate, error) {
	e, err := pr.odds.EstimateAttack(ctx, p.Target, p.MaxUnits, defenders, nil)
	if err != nil {
		return BattleEstimate{}, err
	}
	if e.WinPercent >= pr.th.Win || !p.HasAmphib() {
		return e, nil
	}
	combined := addUnique(append([]*wargame.Unit(nil), p.MaxUnits...), p.MaxAmphibUnits...)
	p.NeedsAmphib = true
	return pr.odds.EstimateAttack(ctx, p.Target, combined, defenders, p.MaxBombardUnits)
}

// alliedAfterStrafe checks whether an ally could take the target on its turn
// after this player strafes it. It reports false when no ally can follow up
// or the ally wins without help.
func (pr *Pruner) alliedAfterStrafe(ctx context.Context, p *AttackPackage, defenders []*wargame.Unit) (BattleEstimate, bool, error) {
	if pr.allies == nil {
		return BattleEstimate{}, false, nil
	}
	ally, ap := pr.allies.Max(p.Target)
	if ap == nil {
		return BattleEstimate{}, false, nil
	}
	alliedUnits := addUnique(append([]*wargame.Unit(nil), ap.MaxUnits...), ap.MaxAmphibUnits...)
	if len(alliedUnits) == 0 {
		return BattleEstimate{}, false, nil
	}
	capital := pr.state.CapitalOf(ally)
	if capital == "" || pr.state.Map.IsAdjacent(capital, p.Target) {
		return BattleEstimate{}, false, nil
	}

	additional := pr.additionalDefenders(p.Target, ally)
	before := addUnique(append([]*wargame.Unit(nil), defenders...), additional...)
	res, err := pr.odds.EstimateAttack(ctx, p.Target, alliedUnits, before, ap.MaxBombardUnits)
	if err != nil {
		return BattleEstimate{}, false, err
	}
	if res.WinPercent >= pr.th.Win {
		return BattleEstimate{}, false, nil
	}

	p.Strafing = true
	mine := addUnique(append([]*wargame.Unit(nil), p.MaxUnits...), p.MaxAmphibUnits...)
	strafe, err := pr.odds.Calculate(ctx, p.Target, mine, defenders, p.MaxBombardUnits, true)
	if err != nil {
		return BattleEstimate{}, false, err
	}
	after := addUnique(append([]*wargame.Unit(nil), strafe.DefendersRemaining...), additional...)
	res, err = pr.odds.EstimateAttack(ctx, p.Target, alliedUnits, after, ap.MaxBombardUnits)
	if err != nil {
		return BattleEstimate{}, false, err
	}
	log.Debug().
		Str("target", p.Target).
		Str("ally", ally).
		Float64("win", res.WinPercent).
		Int("defenders", len(after)).
		Msg("Checked strafing target")
	return res, true, nil
}

// additionalDefenders collects the reinforcements of every enemy that moves
// before ally.
func (pr *Pruner) additionalDefenders(target, ally string) []*wargame.Unit {
	if pr.enemies == nil {
		return nil
	}
	options := pr.enemies.All(target)
	players := make([]string, 0, len(options))
	for p := range options {
		players = append(players, p)
	}
	sort.Strings(players)

	var out []*wargame.Unit
	for _, enemy := range players {
		if !pr.state.IsTurnFirst(pr.player, enemy, ally) {
			continue
		}
		out = addUnique(out, options[enemy].MaxUnits...)
		out = addUnique(out, options[enemy].MaxAmphibUnits...)
	}
	return out
}

func (pr *Pruner) isEnemyCapitalOrFactory(target string) bool {
	t := pr.state.Map.Territory(target)
	if t == nil || t.Water || t.Owner == "" {
		return false
	}
	return t.IsCapital() || HasUnits(pr.state, IsFactory())(t)
}
