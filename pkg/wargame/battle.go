package wargame

import (
	"context"
	"hash/fnv"
	"math"
	"sort"

	"golang.org/x/exp/rand"
)

// maxBattleRounds bounds a single simulated battle.
const maxBattleRounds = 100

// BattleRequest describes one battle to simulate.
type BattleRequest struct {
	Attacker  string
	Defender  string
	Territory string
	Water     bool

	Attackers  []*Unit
	Defenders  []*Unit
	Bombarding []*Unit

	Iterations             int
	DiceSides              int
	LowLuck                bool
	RetreatWhenOnlyAirLeft bool
}

// BattleResult is the averaged outcome of a simulated battle.
type BattleResult struct {
	WinPercent         float64 // 0..100
	TUVSwing           float64 // defender TUV lost minus attacker TUV lost
	AttackersRemaining []*Unit
	DefendersRemaining []*Unit
	AverageRounds      float64
}

// CanFight reports whether u takes part in combat rounds.
func CanFight(u *Unit) bool {
	return !u.Type.IsInfrastructure && !u.Disabled
}

// Power returns the unit's total strength per round.
func Power(u *Unit, attacking bool) int {
	if attacking {
		return u.Type.Attack * u.Type.RollCount()
	}
	return u.Type.Defense
}

// TotalPower sums Power over units that can fight.
func TotalPower(units []*Unit, attacking bool) int {
	total := 0
	for _, u := range units {
		if CanFight(u) {
			total += Power(u, attacking)
		}
	}
	return total
}

// DiceCalculator simulates battles by rolling dice. The zero value is ready
// to use.
type DiceCalculator struct{}

// NewDiceCalculator returns a dice battle simulator.
func NewDiceCalculator() *DiceCalculator {
	return &DiceCalculator{}
}

// Simulate runs req.Iterations battles and averages the outcome.
func (c *DiceCalculator) Simulate(ctx context.Context, req BattleRequest) (BattleResult, error) {
	iterations := max(req.Iterations, 1)
	sides := req.DiceSides
	if sides <= 0 {
		sides = 6
	}
	attackers := casualtyOrder(filterUnits(req.Attackers, CanFight), true)
	defenders := casualtyOrder(filterUnits(req.Defenders, CanFight), false)
	rng := oracleRand(requestSalt(req))

	var (
		wins, rounds     int
		swing            float64
		attackersLeftSum int
		defendersLeftSum int
	)
	for i := 0; i < iterations; i++ {
		if i%16 == 0 {
			if err := ctx.Err(); err != nil {
				return BattleResult{}, err
			}
		}
		b := newBattle(req, attackers, defenders, sides, rng)
		b.run()
		if b.attackerWon() {
			wins++
		}
		rounds += b.rounds
		swing += float64(b.defenderTUVLost() - b.attackerTUVLost())
		attackersLeftSum += b.attackersAlive()
		defendersLeftSum += b.defendersAlive()
	}
	n := float64(iterations)
	return BattleResult{
		WinPercent:         100 * float64(wins) / n,
		TUVSwing:           swing / n,
		AttackersRemaining: strongest(attackers, int(math.Round(float64(attackersLeftSum)/n))),
		DefendersRemaining: strongest(defenders, int(math.Round(float64(defendersLeftSum)/n))),
		AverageRounds:      float64(rounds) / n,
	}, nil
}

// strongest returns the last k units of a casualty-ordered slice.
func strongest(ordered []*Unit, k int) []*Unit {
	if k <= 0 {
		return nil
	}
	if k > len(ordered) {
		k = len(ordered)
	}
	out := make([]*Unit, k)
	copy(out, ordered[len(ordered)-k:])
	return out
}

func filterUnits(units []*Unit, pred func(*Unit) bool) []*Unit {
	var out []*Unit
	for _, u := range units {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out
}

// casualtyOrder sorts units so the first entry is lost first: cheapest, then
// weakest, then by ID.
func casualtyOrder(units []*Unit, attacking bool) []*Unit {
	out := append([]*Unit(nil), units...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type.Cost != b.Type.Cost {
			return a.Type.Cost < b.Type.Cost
		}
		if pa, pb := Power(a, attacking), Power(b, attacking); pa != pb {
			return pa < pb
		}
		return a.ID < b.ID
	})
	return out
}

func requestSalt(req BattleRequest) uint64 {
	h := fnv.New64a()
	h.Write([]byte(req.Territory))
	for _, group := range [][]*Unit{req.Attackers, req.Defenders, req.Bombarding} {
		h.Write([]byte{'|'})
		for _, u := range group {
			h.Write([]byte(u.ID))
			h.Write([]byte{','})
		}
	}
	return h.Sum64()
}

// battle is the mutable state of one simulated battle. hp holds remaining hit
// points per unit, parallel to the casualty-ordered unit slices.
type battle struct {
	req       BattleRequest
	sides     int
	rng       *rand.Rand
	attackers []*Unit
	defenders []*Unit
	attHP     []int
	defHP     []int
	rounds    int
	retreated bool
}

func newBattle(req BattleRequest, attackers, defenders []*Unit, sides int, rng *rand.Rand) *battle {
	b := &battle{
		req:       req,
		sides:     sides,
		rng:       rng,
		attackers: attackers,
		defenders: defenders,
		attHP:     make([]int, len(attackers)),
		defHP:     make([]int, len(defenders)),
	}
	for i, u := range attackers {
		b.attHP[i] = u.HitPointsLeft()
	}
	for i, u := range defenders {
		b.defHP[i] = u.HitPointsLeft()
	}
	return b
}

func (b *battle) run() {
	if len(b.attackers) == 0 {
		return
	}
	b.fireAA()
	for b.attackersAlive() > 0 && b.defendersAlive() > 0 && b.rounds < maxBattleRounds {
		b.rounds++
		var att, def pool
		if b.rounds == 1 {
			for _, u := range b.req.Bombarding {
				b.add(&att, u.Type.Bombard, 1)
			}
		}
		for i, u := range b.attackers {
			if b.attHP[i] > 0 {
				b.add(&att, u.Type.Attack, u.Type.RollCount())
			}
		}
		for i, u := range b.defenders {
			if b.defHP[i] > 0 {
				b.add(&def, u.Type.Defense, 1)
			}
		}
		applyHits(b.defHP, b.hits(&att))
		applyHits(b.attHP, b.hits(&def))
		if b.req.RetreatWhenOnlyAirLeft && b.onlyAirLeft() && b.defendersAlive() > 0 {
			b.retreated = true
			return
		}
	}
}

// fireAA gives each defending AA unit one shot per attacking air unit before
// the first round. Hits remove the cheapest air units.
func (b *battle) fireAA() {
	if b.req.Water {
		return
	}
	aa := 0
	for _, u := range b.req.Defenders {
		if u.Type.IsAA && !u.Disabled {
			aa++
		}
	}
	if aa == 0 {
		return
	}
	var shots pool
	for _, u := range b.attackers {
		if u.IsAir() {
			b.add(&shots, 1, aa)
		}
	}
	hits := b.hits(&shots)
	for i, u := range b.attackers {
		if hits == 0 {
			break
		}
		if u.IsAir() && b.attHP[i] > 0 {
			b.attHP[i] = 0
			hits--
		}
	}
}

// pool accumulates one side's fire for a round. Dice are rolled as they are
// added; under low luck the strength is pooled and converted to hits.
type pool struct {
	power int
	hits  int
}

func (b *battle) add(p *pool, strength, n int) {
	if strength <= 0 || n <= 0 {
		return
	}
	if b.req.LowLuck {
		p.power += strength * n
		return
	}
	for range n {
		if b.rng.Intn(b.sides) < strength {
			p.hits++
		}
	}
}

// hits resolves a pool. Low luck scores one hit per full die face total and
// rolls once for the remainder.
func (b *battle) hits(p *pool) int {
	hits := p.hits + p.power/b.sides
	if rem := p.power % b.sides; rem > 0 && b.rng.Intn(b.sides) < rem {
		hits++
	}
	return hits
}

// applyHits first removes extra hit points from multi-hit units, then kills
// units in casualty order.
func applyHits(hp []int, hits int) {
	for i := range hp {
		for hits > 0 && hp[i] > 1 {
			hp[i]--
			hits--
		}
	}
	for i := range hp {
		if hits == 0 {
			return
		}
		if hp[i] > 0 {
			hp[i] = 0
			hits--
		}
	}
}

func (b *battle) onlyAirLeft() bool {
	found := false
	for i, u := range b.attackers {
		if b.attHP[i] > 0 {
			if !u.IsAir() {
				return false
			}
			found = true
		}
	}
	return found
}

func (b *battle) attackerWon() bool {
	return !b.retreated && b.defendersAlive() == 0 && b.attackersAlive() > 0
}

func (b *battle) attackersAlive() int { return countAlive(b.attHP) }
func (b *battle) defendersAlive() int { return countAlive(b.defHP) }

func (b *battle) attackerTUVLost() int { return tuvLost(b.attackers, b.attHP) }
func (b *battle) defenderTUVLost() int { return tuvLost(b.defenders, b.defHP) }

func countAlive(hp []int) int {
	n := 0
	for _, h := range hp {
		if h > 0 {
			n++
		}
	}
	return n
}

func tuvLost(units []*Unit, hp []int) int {
	lost := 0
	for i, u := range units {
		if hp[i] <= 0 {
			lost += u.Type.Cost
		}
	}
	return lost
}
