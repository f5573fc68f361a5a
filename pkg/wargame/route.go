package wargame

import (
	"fmt"
	"strings"
)

// Route is an ordered path from Start through Steps. The last step is the
// destination.
type Route struct {
	Start string
	Steps []string
}

// NewRoute builds a route and checks that every intermediate step exists on
// m and satisfies pred. The end territory is not tested against pred.
func NewRoute(m *Map, start string, pred func(*Territory) bool, steps ...string) (*Route, error) {
	if m.Territory(start) == nil {
		return nil, fmt.Errorf("route start %q: %w", start, ErrUnknownTerritory)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("route from %q has no steps: %w", start, ErrNoRoute)
	}
	prev := start
	for i, s := range steps {
		t := m.Territory(s)
		if t == nil {
			return nil, fmt.Errorf("route step %q: %w", s, ErrUnknownTerritory)
		}
		if !m.IsAdjacent(prev, s) {
			return nil, fmt.Errorf("route step %s->%s not adjacent: %w", prev, s, ErrNoRoute)
		}
		if i < len(steps)-1 && pred != nil && !pred(t) {
			return nil, fmt.Errorf("route step %q not passable: %w", s, ErrNoRoute)
		}
		prev = s
	}
	return &Route{Start: start, Steps: steps}, nil
}

// Len returns the number of steps.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Steps)
}

// End returns the destination, or Start for an empty route.
func (r *Route) End() string {
	if len(r.Steps) == 0 {
		return r.Start
	}
	return r.Steps[len(r.Steps)-1]
}

// All returns Start followed by every step.
func (r *Route) All() []string {
	out := make([]string, 0, len(r.Steps)+1)
	out = append(out, r.Start)
	return append(out, r.Steps...)
}

// Intermediate returns the steps strictly between Start and End.
func (r *Route) Intermediate() []string {
	if len(r.Steps) <= 1 {
		return nil
	}
	return r.Steps[:len(r.Steps)-1]
}

// Equal reports whether two routes visit the same territories.
func (r *Route) Equal(o *Route) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Start != o.Start || len(r.Steps) != len(o.Steps) {
		return false
	}
	for i := range r.Steps {
		if r.Steps[i] != o.Steps[i] {
			return false
		}
	}
	return true
}

func (r *Route) String() string {
	if r == nil {
		return "<nil>"
	}
	return strings.Join(r.All(), "->")
}
