package wargame

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrUnknownTerritory = errors.New("unknown territory")
	ErrNoRoute          = errors.New("no route")
)

// Territory is a single land or sea area on the map.
type Territory struct {
	ID         string
	Name       string
	Water      bool
	Owner      string // "" for sea zones and unowned neutral land
	Production int
	Capital    string // player whose capital this is, "" if none
	Impassable bool
}

// IsCapital reports whether the territory is any player's capital.
func (t *Territory) IsCapital() bool { return t.Capital != "" }

// IsNeutral reports whether the territory is unowned land.
func (t *Territory) IsNeutral() bool { return !t.Water && t.Owner == "" }

// Canal joins two sea zones. Passing between them requires the mover or an
// ally to own every controlling land territory.
type Canal struct {
	Name        string
	SeaZones    [2]string
	Controllers []string
}

// graph holds the immutable topology shared by every clone of a map.
type graph struct {
	adjacency map[string][]string
	canals    []Canal
	ids       []string

	distOnce sync.Once
	dist     *distMatrix
}

// Map holds territories and their adjacency graph. Territory attributes may
// change between turns (ownership); topology never does.
type Map struct {
	Territories map[string]*Territory
	g           *graph
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{
		Territories: make(map[string]*Territory),
		g:           &graph{adjacency: make(map[string][]string)},
	}
}

// AddTerritory registers a territory. Topology must be complete before the
// first distance query.
func (m *Map) AddTerritory(t *Territory) {
	if _, ok := m.Territories[t.ID]; !ok {
		m.g.ids = append(m.g.ids, t.ID)
		sort.Strings(m.g.ids)
	}
	m.Territories[t.ID] = t
}

// Connect adds an undirected adjacency between two territories.
func (m *Map) Connect(a, b string) {
	if m.IsAdjacent(a, b) {
		return
	}
	m.g.adjacency[a] = insertSorted(m.g.adjacency[a], b)
	m.g.adjacency[b] = insertSorted(m.g.adjacency[b], a)
}

// AddCanal registers a canal between two adjacent sea zones.
func (m *Map) AddCanal(c Canal) {
	m.g.canals = append(m.g.canals, c)
}

// Canals returns the map's canals.
func (m *Map) Canals() []Canal { return m.g.canals }

// Territory returns the territory with the given ID, or nil.
func (m *Map) Territory(id string) *Territory {
	return m.Territories[id]
}

// IDs returns every territory ID in sorted order.
func (m *Map) IDs() []string { return m.g.ids }

// Neighbors returns the sorted IDs adjacent to id.
func (m *Map) Neighbors(id string) []string {
	return m.g.adjacency[id]
}

// NeighborsMatching returns the neighbors of id that satisfy pred.
func (m *Map) NeighborsMatching(id string, pred func(*Territory) bool) []string {
	var out []string
	for _, n := range m.g.adjacency[id] {
		if pred == nil || pred(m.Territories[n]) {
			out = append(out, n)
		}
	}
	return out
}

// IsAdjacent reports whether a and b share a border.
func (m *Map) IsAdjacent(a, b string) bool {
	for _, n := range m.g.adjacency[a] {
		if n == b {
			return true
		}
	}
	return false
}

// IsIsland reports whether id is land surrounded only by water.
func (m *Map) IsIsland(id string) bool {
	t := m.Territories[id]
	if t == nil || t.Water {
		return false
	}
	for _, n := range m.g.adjacency[id] {
		if !m.Territories[n].Water {
			return false
		}
	}
	return true
}

// Within returns the territories reachable from id in at most dist steps
// where every step, including the last, satisfies pred. The start is
// excluded. The result is sorted.
func (m *Map) Within(id string, dist int, pred func(*Territory) bool) []string {
	seen := map[string]bool{id: true}
	frontier := []string{id}
	var out []string
	for step := 0; step < dist && len(frontier) > 0; step++ {
		var next []string
		for _, cur := range frontier {
			for _, n := range m.g.adjacency[cur] {
				if seen[n] {
					continue
				}
				if pred != nil && !pred(m.Territories[n]) {
					continue
				}
				seen[n] = true
				next = append(next, n)
				out = append(out, n)
			}
		}
		frontier = next
	}
	sort.Strings(out)
	return out
}

// Distance returns the unfiltered step count between a and b, or -1.
func (m *Map) Distance(a, b string) int {
	return m.distances().get(a, b)
}

// DistanceMatching returns the length of the shortest route from a to b whose
// intermediate steps satisfy pred, or -1 if none exists. The end territory is
// not tested against pred.
func (m *Map) DistanceMatching(a, b string, pred func(*Territory) bool) int {
	r := m.Route(a, b, pred, nil)
	if r == nil {
		return -1
	}
	return r.Len()
}

// Route returns a shortest route from `from` to `to` whose intermediate steps
// satisfy pred and are not in exclude. The end territory is not tested
// against pred. Returns nil when no route exists. Ties resolve by sorted ID.
func (m *Map) Route(from, to string, pred func(*Territory) bool, exclude map[string]bool) *Route {
	if from == to {
		return nil
	}
	if m.Territories[from] == nil || m.Territories[to] == nil {
		return nil
	}
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range m.g.adjacency[cur] {
			if _, ok := prev[n]; ok {
				continue
			}
			if n == to {
				prev[n] = cur
				return buildRoute(prev, from, to)
			}
			if exclude[n] {
				continue
			}
			if pred != nil && !pred(m.Territories[n]) {
				continue
			}
			prev[n] = cur
			queue = append(queue, n)
		}
	}
	return nil
}

func buildRoute(prev map[string]string, from, to string) *Route {
	var steps []string
	for cur := to; cur != from; cur = prev[cur] {
		steps = append(steps, cur)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return &Route{Start: from, Steps: steps}
}

// Clone copies territory attributes and shares the immutable topology.
func (m *Map) Clone() *Map {
	c := &Map{
		Territories: make(map[string]*Territory, len(m.Territories)),
		g:           m.g,
	}
	for id, t := range m.Territories {
		cp := *t
		c.Territories[id] = &cp
	}
	return c
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// distMatrix holds all-pairs unfiltered BFS distances.
type distMatrix struct {
	idx  map[string]int
	n    int
	dist []int16
}

func (d *distMatrix) get(a, b string) int {
	i, ok := d.idx[a]
	if !ok {
		return -1
	}
	j, ok := d.idx[b]
	if !ok {
		return -1
	}
	return int(d.dist[i*d.n+j])
}

func (m *Map) distances() *distMatrix {
	m.g.distOnce.Do(func() {
		m.g.dist = buildDistMatrix(m.g)
	})
	return m.g.dist
}

// buildDistMatrix runs one BFS per territory.
func buildDistMatrix(g *graph) *distMatrix {
	n := len(g.ids)
	idx := make(map[string]int, n)
	for i, id := range g.ids {
		idx[id] = i
	}
	dist := make([]int16, n*n)
	for i := range dist {
		dist[i] = -1
	}
	for src := range n {
		dist[src*n+src] = 0
		queue := []int{src}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			d := dist[src*n+cur]
			for _, nb := range g.adjacency[g.ids[cur]] {
				j, ok := idx[nb]
				if !ok || dist[src*n+j] >= 0 {
					continue
				}
				dist[src*n+j] = d + 1
				queue = append(queue, j)
			}
		}
	}
	return &distMatrix{idx: idx, n: n, dist: dist}
}
