package neural

import "github.com/freeeve/polite-betrayal/proai/pkg/wargame"

// EncodeBattle encodes one side's units fighting enemies in t into a flat
// [NumFeatures] float32 vector. The first block describes units, the second
// enemies.
func EncodeBattle(t *wargame.Territory, units, enemies []*wargame.Unit, attacking bool, diceSides int) []float32 {
	if diceSides <= 0 {
		diceSides = 6
	}
	v := make([]float32, NumFeatures)
	encodeSide(v[:NumSideFeatures], units, attacking, diceSides)
	encodeSide(v[NumSideFeatures:2*NumSideFeatures], enemies, !attacking, diceSides)

	if t != nil {
		if t.Water {
			v[FeatWater] = 1
		}
		v[FeatProduction] = float32(t.Production)
		if t.IsCapital() {
			v[FeatCapital] = 1
		}
	}
	if attacking {
		v[FeatAttacking] = 1
	}
	v[FeatDice] = float32(diceSides) / 6
	return v
}

func encodeSide(v []float32, units []*wargame.Unit, attacking bool, diceSides int) {
	for _, u := range units {
		if u.Type.IsInfrastructure {
			continue
		}
		v[FeatCount]++
		v[FeatHitPoints] += float32(u.HitPointsLeft())
		v[FeatPower] += float32(wargame.Power(u, attacking)) * 6 / float32(diceSides)
		v[FeatRolls] += float32(u.Type.RollCount())
		switch {
		case u.IsLand():
			v[FeatLand]++
		case u.IsSea():
			v[FeatSea]++
		case u.IsAir():
			v[FeatAir]++
		}
		if u.Type.IsSub {
			v[FeatSubs]++
		}
		if u.Type.IsDestroyer {
			v[FeatDestroyers]++
		}
		if u.Type.IsAA {
			v[FeatAA]++
		}
		if attacking {
			v[FeatBombard] += float32(u.Type.Bombard)
		}
		v[FeatTUV] += float32(u.Type.Cost)
	}
}
