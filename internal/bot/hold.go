package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// holdValueFactor scales the average value of the territories the attackers
// leave behind before comparing it with the target's value.
const holdValueFactor = 0.75

// determineCanHold marks whether each target could be kept after the
// strongest enemy counter-attack. Strafed targets are never held, and land
// worth less than what the ground attackers leave behind is not worth
// holding.
func determineCanHold(ctx context.Context, gs *wargame.GameState, player string, odds *Odds, th Thresholds,
	packages []*AttackPackage, enemies OtherOptions, values map[string]float64) {
	factory := HasUnits(gs, IsFactory())
	for _, p := range packages {
		if p.Strafing {
			p.CanHold = false
			continue
		}
		t := gs.Map.Territory(p.Target)
		if t == nil {
			continue
		}

		ground := Filter(p.MaxUnits, IsAirUnit().Not())
		if !t.Water && len(ground) > 0 {
			total := 0.0
			for _, u := range ground {
				total += values[gs.LocationOf(u)]
			}
			average := total / float64(len(ground)) * holdValueFactor
			if values[t.ID]*(1+4*boolf(factory(t))) < average {
				p.CanHold = false
				continue
			}
		}

		_, enemy := enemies.Max(p.Target)
		if enemy == nil {
			p.CanHold = true
			continue
		}
		attackers := addUnique(append([]*wargame.Unit(nil), p.MaxUnits...), p.MaxAmphibUnits...)
		mine, err := odds.EstimateAttack(ctx, p.Target, attackers, maxDefenders(gs, player, p), p.MaxBombardUnits)
		if err != nil {
			log.Warn().Err(err).Str("target", p.Target).Msg("Assuming target can't be held, odds unavailable")
			p.CanHold = false
			continue
		}
		remaining := Filter(mine.AttackersRemaining, IsAirUnit().Not())
		counter := addUnique(append([]*wargame.Unit(nil), enemy.MaxUnits...), enemy.MaxAmphibUnits...)
		res, err := odds.Calculate(ctx, p.Target, counter, remaining, enemy.MaxBombardUnits, false)
		if err != nil {
			log.Warn().Err(err).Str("target", p.Target).Msg("Assuming target can't be held, odds unavailable")
			p.CanHold = false
			continue
		}
		p.CanHold = (!res.HasLandUnitRemaining && !t.Water) || res.TUVSwing < 0 || res.WinPercent < th.MinWin
		log.Debug().Str("target", p.Target).Bool("canHold", p.CanHold).
			Float64("counterWin", res.WinPercent).Int("defenders", len(remaining)).Msg("Checked counter-attack")
	}
}

// worthAttacking drops targets that can't be held and aren't worth a
// one-turn raid: empty enemy sea zones, neutral land without overwhelming
// odds and low value amphibious landings.
func worthAttacking(gs *wargame.GameState, player string, odds *Odds, enemies OtherOptions, p *AttackPackage) bool {
	if p.CanHold {
		return true
	}
	if _, enemy := enemies.Max(p.Target); enemy == nil {
		return true
	}
	t := gs.Map.Territory(p.Target)
	if t == nil {
		return false
	}
	if t.Water {
		return HasEnemyUnits(gs, player)(t)
	}
	if t.IsNeutral() {
		return odds.StrengthDifference(t.ID, p.MaxUnits, maxDefenders(gs, player, p)) > overwhelmingStrength
	}
	return !p.NeedsAmphib || p.Value >= 2
}
