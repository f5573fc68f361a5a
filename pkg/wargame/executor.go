package wargame

import (
	"context"
	"sync"
)

// LocalExecutor applies moves directly to an in-memory GameState.
type LocalExecutor struct {
	mu    sync.Mutex
	state *GameState
}

// NewLocalExecutor returns an executor that mutates state.
func NewLocalExecutor(state *GameState) *LocalExecutor {
	return &LocalExecutor{state: state}
}

// Move applies one move. A nil transport means a plain move or an unload.
func (e *LocalExecutor) Move(ctx context.Context, units []*Unit, route *Route, transport *Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ApplyMove(units, route, transport)
}

// State returns the executor's game state.
func (e *LocalExecutor) State() *GameState {
	return e.state
}
