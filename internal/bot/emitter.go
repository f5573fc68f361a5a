package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// ErrInvalidMove is recorded for plan entries that cannot be executed as
// written: no units or no route.
var ErrInvalidMove = errors.New("invalid move")

// Executor carries out one move. A nil transport means a plain move or an
// unload; a non-nil transport loads units into it.
type Executor interface {
	Move(ctx context.Context, units []*wargame.Unit, route *wargame.Route, transport *wargame.Unit) error
}

// MoveKind classifies an emitted move.
type MoveKind string

const (
	MoveAttack  MoveKind = "attack"
	MoveLoad    MoveKind = "load"
	MoveAdvance MoveKind = "advance"
	MoveUnload  MoveKind = "unload"
	MoveBombard MoveKind = "bombard"
)

// MoveInstruction is one move of a plan.
type MoveInstruction struct {
	Kind      MoveKind
	Target    string
	Units     []*wargame.Unit
	Route     *wargame.Route
	Transport *wargame.Unit // load moves only
}

func (m MoveInstruction) String() string {
	return fmt.Sprintf("%s %s %v via %s", m.Kind, m.Target, wargame.UnitIDs(m.Units), m.Route)
}

// MoveResult pairs a move with its execution outcome.
type MoveResult struct {
	Move MoveInstruction
	Err  error
}

// Emitter turns committed packages into ordered moves: plain attacks first,
// then each transport's load, advance and unload sequence, then
// bombardment.
type Emitter struct {
	state  *wargame.GameState
	agg    *Aggregator
	finder *OptionFinder
}

// NewEmitter returns an emitter for player's packages in agg.
func NewEmitter(gs *wargame.GameState, player string, agg *Aggregator) *Emitter {
	return &Emitter{state: gs, agg: agg, finder: NewOptionFinder(gs, player, true)}
}

// Emit builds the moves for packages. Entries without a usable route are
// logged and skipped.
func (e *Emitter) Emit(packages []*AttackPackage) []MoveInstruction {
	attacks := newMoveBatch(MoveAttack)
	for _, p := range packages {
		for _, u := range p.Units {
			r := e.agg.RouteTo(u, p.Target)
			if r == nil || r.Len() == 0 {
				log.Warn().Str("unit", u.ID).Str("target", p.Target).Msg("Skipping attack with no route")
				continue
			}
			attacks.add(p.Target, u, r)
		}
	}

	var amphib []MoveInstruction
	for _, p := range packages {
		for _, t := range sortedTransports(p) {
			amphib = append(amphib, e.amphibMoves(p.Target, p.Transport[t])...)
		}
	}

	bombard := newMoveBatch(MoveBombard)
	for _, p := range packages {
		for _, u := range p.Bombard {
			zone := p.BombardFrom[u]
			loc := e.state.LocationOf(u)
			if zone == "" || zone == loc {
				continue
			}
			r := e.finder.SeaRoute(loc, zone)
			if r == nil {
				log.Warn().Str("unit", u.ID).Str("zone", zone).Msg("Skipping bombard with no route")
				continue
			}
			bombard.add(p.Target, u, r)
		}
	}

	out := attacks.instructions()
	out = append(out, amphib...)
	return append(out, bombard.instructions()...)
}

// amphibMoves walks the transport along its sea path, loading cargo at the
// first zone next to it, and unloads everything into target.
func (e *Emitter) amphibMoves(target string, plan *TransportPlan) []MoveInstruction {
	zone := plan.UnloadZone[target]
	cargo := plan.Cargo[target]
	if zone == "" || len(cargo) == 0 {
		log.Warn().Str("transport", plan.Transport.ID).Str("target", target).Msg("Skipping landing with no cargo")
		return nil
	}
	path := SeaPath(e.finder, plan.Origin, zone)
	if path == nil {
		log.Warn().Str("transport", plan.Transport.ID).Str("zone", zone).Msg("Skipping landing with no sea route")
		return nil
	}

	aboard := make(map[*wargame.Unit]bool)
	for _, u := range plan.Fixed {
		aboard[u] = true
	}
	var moves []MoveInstruction
	at := 0
	for i, z := range path {
		loads := e.loadsAt(z, cargo, aboard)
		if len(loads) == 0 {
			continue
		}
		if i > at {
			moves = append(moves, advance(plan.Transport, target, path, at, i))
			at = i
		}
		for _, l := range loads {
			l.Transport = plan.Transport
			l.Target = target
			moves = append(moves, l)
			for _, u := range l.Units {
				aboard[u] = true
			}
		}
	}
	if at < len(path)-1 {
		moves = append(moves, advance(plan.Transport, target, path, at, len(path)-1))
	}

	var landing []*wargame.Unit
	for _, u := range cargo {
		if aboard[u] {
			landing = append(landing, u)
		} else {
			log.Warn().Str("unit", u.ID).Str("transport", plan.Transport.ID).Msg("Cargo never passes the transport path")
		}
	}
	if len(landing) == 0 {
		return nil
	}
	return append(moves, MoveInstruction{
		Kind:   MoveUnload,
		Target: target,
		Units:  landing,
		Route:  &wargame.Route{Start: zone, Steps: []string{target}},
	})
}

// loadsAt groups cargo not yet aboard by the land territory it would board
// from when the transport sits in zone.
func (e *Emitter) loadsAt(zone string, cargo []*wargame.Unit, aboard map[*wargame.Unit]bool) []MoveInstruction {
	byOrigin := make(map[string][]*wargame.Unit)
	var origins []string
	for _, u := range cargo {
		if aboard[u] {
			continue
		}
		loc := e.state.LocationOf(u)
		if !e.state.Map.IsAdjacent(loc, zone) {
			continue
		}
		if _, ok := byOrigin[loc]; !ok {
			origins = append(origins, loc)
		}
		byOrigin[loc] = append(byOrigin[loc], u)
	}
	sort.Strings(origins)
	out := make([]MoveInstruction, 0, len(origins))
	for _, loc := range origins {
		out = append(out, MoveInstruction{
			Kind:  MoveLoad,
			Units: byOrigin[loc],
			Route: &wargame.Route{Start: loc, Steps: []string{zone}},
		})
	}
	return out
}

func advance(transport *wargame.Unit, target string, path []string, from, to int) MoveInstruction {
	return MoveInstruction{
		Kind:   MoveAdvance,
		Target: target,
		Units:  []*wargame.Unit{transport},
		Route:  &wargame.Route{Start: path[from], Steps: append([]string(nil), path[from+1:to+1]...)},
	}
}

func sortedTransports(p *AttackPackage) []*wargame.Unit {
	out := make([]*wargame.Unit, 0, len(p.Transport))
	for t := range p.Transport {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// moveBatch merges moves of one kind that share a route.
type moveBatch struct {
	kind  MoveKind
	order []string
	moves map[string]*MoveInstruction
}

func newMoveBatch(kind MoveKind) *moveBatch {
	return &moveBatch{kind: kind, moves: make(map[string]*MoveInstruction)}
}

func (b *moveBatch) add(target string, u *wargame.Unit, r *wargame.Route) {
	key := r.String()
	m := b.moves[key]
	if m == nil {
		m = &MoveInstruction{Kind: b.kind, Target: target, Route: r}
		b.moves[key] = m
		b.order = append(b.order, key)
	}
	m.Units = append(m.Units, u)
}

func (b *moveBatch) instructions() []MoveInstruction {
	out := make([]MoveInstruction, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, *b.moves[k])
	}
	return out
}

// Execute runs moves in order. An invalid or failing move is logged and
// recorded; the rest still run. Execution stops early only when ctx is done.
func Execute(ctx context.Context, ex Executor, moves []MoveInstruction) ([]MoveResult, error) {
	results := make([]MoveResult, 0, len(moves))
	for _, m := range moves {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if m.Route == nil || m.Route.Len() == 0 || len(m.Units) == 0 {
			log.Warn().Str("move", m.String()).Msg("Skipping invalid move")
			results = append(results, MoveResult{Move: m, Err: ErrInvalidMove})
			continue
		}
		err := ex.Move(ctx, m.Units, m.Route, m.Transport)
		if err != nil {
			err = fmt.Errorf("%s %s: %w", m.Kind, m.Route, err)
			log.Warn().Err(err).Str("target", m.Target).Msg("Move failed")
		}
		results = append(results, MoveResult{Move: m, Err: err})
	}
	return results, nil
}
