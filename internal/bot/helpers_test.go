package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/freeeve/polite-betrayal/proai/internal/model"
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// powerOracle decides battles by comparing strength: attack or defense power
// plus twice the hit points of every unit that can fight. The stronger side
// wins outright and keeps all its units.
type powerOracle struct {
	calls atomic.Int64
	err   error
}

func (o *powerOracle) Simulate(_ context.Context, req wargame.BattleRequest) (wargame.BattleResult, error) {
	o.calls.Add(1)
	if o.err != nil {
		return wargame.BattleResult{}, o.err
	}
	att := sideStrength(req.Attackers, true) + sideStrength(req.Bombarding, true)
	def := sideStrength(req.Defenders, false)
	if att > def {
		return wargame.BattleResult{
			WinPercent:         100,
			TUVSwing:           float64(wargame.TUV(req.Defenders)),
			AttackersRemaining: req.Attackers,
			AverageRounds:      1,
		}, nil
	}
	return wargame.BattleResult{
		TUVSwing:           -float64(wargame.TUV(req.Attackers)),
		DefendersRemaining: req.Defenders,
		AverageRounds:      1,
	}, nil
}

func (o *powerOracle) Calls() int { return int(o.calls.Load()) }

func sideStrength(units []*wargame.Unit, attacking bool) int {
	fighting := Filter(units, UnitPredicate(wargame.CanFight))
	return wargame.TotalPower(fighting, attacking) + 2*wargame.TotalHitPoints(fighting)
}

// fixedOracle always answers with the same win percentage.
type fixedOracle struct {
	win   float64
	calls atomic.Int64
}

func (o *fixedOracle) Simulate(_ context.Context, req wargame.BattleRequest) (wargame.BattleResult, error) {
	o.calls.Add(1)
	return wargame.BattleResult{
		WinPercent:         o.win,
		AttackersRemaining: req.Attackers,
		DefendersRemaining: req.Defenders,
		AverageRounds:      1,
	}, nil
}

// board builds small custom maps for focused tests. germany and italy are
// allied against russia and britain.
type board struct {
	t     *testing.T
	m     *wargame.Map
	gs    *wargame.GameState
	types map[string]*wargame.UnitType
	next  int
}

func newBoard(t *testing.T) *board {
	t.Helper()
	return &board{t: t, m: wargame.NewMap(), types: wargame.StandardUnitTypes()}
}

func (b *board) land(id, owner string, production int) *board {
	b.m.AddTerritory(&wargame.Territory{ID: id, Name: id, Owner: owner, Production: production})
	return b
}

func (b *board) capital(id, owner string, production int) *board {
	b.m.AddTerritory(&wargame.Territory{ID: id, Name: id, Owner: owner, Production: production, Capital: owner})
	return b
}

func (b *board) sea(ids ...string) *board {
	for _, id := range ids {
		b.m.AddTerritory(&wargame.Territory{ID: id, Name: id, Water: true})
	}
	return b
}

func (b *board) connect(edges ...[2]string) *board {
	for _, e := range edges {
		b.m.Connect(e[0], e[1])
	}
	return b
}

// state freezes the topology and seats the players.
func (b *board) state() *wargame.GameState {
	b.gs = wargame.NewGameState(b.m)
	b.gs.AddPlayer("germany", "axis")
	b.gs.AddPlayer("russia", "allies")
	b.gs.AddPlayer("britain", "allies")
	b.gs.AddPlayer("italy", "axis")
	return b.gs
}

func (b *board) place(territory, owner, typ string, n int) []*wargame.Unit {
	b.t.Helper()
	ut := b.types[typ]
	if ut == nil {
		b.t.Fatalf("unknown unit type %q", typ)
	}
	out := make([]*wargame.Unit, n)
	for i := range n {
		b.next++
		u := wargame.NewUnit(fmt.Sprintf("%s-%s-%d", owner[:3], typ, b.next), owner, ut)
		if err := b.gs.Place(territory, u); err != nil {
			b.t.Fatalf("place %s: %v", territory, err)
		}
		out[i] = u
	}
	return out
}

// recordingExecutor applies moves to a state and records every call.
type recordingExecutor struct {
	mu    sync.Mutex
	local *wargame.LocalExecutor
	calls []MoveInstruction
	fail  map[int]error // call index -> forced error
}

func newRecordingExecutor(gs *wargame.GameState) *recordingExecutor {
	return &recordingExecutor{local: wargame.NewLocalExecutor(gs)}
}

func (r *recordingExecutor) Move(ctx context.Context, units []*wargame.Unit, route *wargame.Route, transport *wargame.Unit) error {
	r.mu.Lock()
	idx := len(r.calls)
	r.calls = append(r.calls, MoveInstruction{Units: units, Route: route, Transport: transport})
	err := r.fail[idx]
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if r.local == nil {
		return nil
	}
	return r.local.Move(ctx, units, route, transport)
}

// memPlanRepo is an in-memory plan journal.
type memPlanRepo struct {
	mu      sync.Mutex
	plans   map[string]*model.Plan
	results map[string]string
	err     error
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{plans: make(map[string]*model.Plan), results: make(map[string]string)}
}

func (r *memPlanRepo) CreatePlan(_ context.Context, p *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *p
	r.plans[p.ID] = &cp
	return nil
}

func (r *memPlanRepo) SaveMoves(_ context.Context, planID string, moves []model.PlanMove) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.plans[planID]
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	p.Moves = append(p.Moves, moves...)
	return nil
}

func (r *memPlanRepo) UpdateMoveResult(_ context.Context, moveID, result string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[moveID] = result
	return nil
}

func (r *memPlanRepo) MarkExecuted(_ context.Context, planID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.plans[planID]
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	p.Status = status
	return nil
}

func (r *memPlanRepo) FindByID(_ context.Context, id string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plans[id], nil
}

func (r *memPlanRepo) ListByGame(_ context.Context, gameID string, limit int) ([]model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Plan
	for _, p := range r.plans {
		if p.GameID == gameID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// memOddsCache is an in-memory OddsCache.
type memOddsCache struct {
	mu   sync.Mutex
	recs map[string]*model.OddsRecord
	gets int
	sets int
}

func newMemOddsCache() *memOddsCache {
	return &memOddsCache{recs: make(map[string]*model.OddsRecord)}
}

func (c *memOddsCache) GetOdds(_ context.Context, key string) (*model.OddsRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.recs[key], nil
}

func (c *memOddsCache) SetOdds(_ context.Context, key string, rec *model.OddsRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.recs[key] = rec
	return nil
}

func unitSet(units []*wargame.Unit) map[*wargame.Unit]bool {
	out := make(map[*wargame.Unit]bool, len(units))
	for _, u := range units {
		out[u] = true
	}
	return out
}
