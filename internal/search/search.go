// Package search implements best-first (A* and Pohl-weighted A*) search over
// a grid.Grid.
package search

import (
	"math"

	"github.com/Garsondee/pathsense/internal/grid"
)

// DefaultWeight makes f proportional to g+h, i.e. classic A*.
const DefaultWeight = 0.5

// HeuristicFunc estimates the remaining cost from c to the search goal.
type HeuristicFunc func(c grid.Coord) float64

// Result is the outcome of a search. A missing path is a value: Cost is +Inf
// and Path is empty.
type Result struct {
	Cost     float64
	Path     []grid.Coord // start..goal inclusive; nil in cost-only mode
	Expanded int

	// Populated only WithWorkings.
	Open   []grid.Coord
	Closed []grid.Coord
}

// Found reports whether the search reached the goal.
func (r Result) Found() bool {
	return !math.IsInf(r.Cost, 1)
}

// NoPath is the result for an unreachable goal.
func NoPath() Result {
	return Result{Cost: grid.Inf}
}

type config struct {
	weight    float64
	wantPath  bool
	workings  bool
	keys      []grid.Coord
	heuristic HeuristicFunc
}

// Option configures a single search.
type Option func(*config)

// WithWeight sets the Pohl weight w in f = (1−w)·g + w·h. w=0 is uniform-cost
// search, w=1 is greedy best-first.
func WithWeight(w float64) Option {
	return func(c *config) { c.weight = w }
}

// WithoutPath skips path reconstruction; only Cost is filled.
func WithoutPath() Option {
	return func(c *config) { c.wantPath = false }
}

// WithKeys sets the keys held while searching.
func WithKeys(keys []grid.Coord) Option {
	return func(c *config) { c.keys = keys }
}

// WithHeuristic replaces the grid's heuristic. The function may be
// inadmissible; optimality is then not guaranteed.
func WithHeuristic(h HeuristicFunc) Option {
	return func(c *config) { c.heuristic = h }
}

// WithWorkings records the open and closed sets for drawing.
func WithWorkings() Option {
	return func(c *config) { c.workings = true }
}

// Search finds the cheapest path from start to goal. Closed nodes are never
// reopened and transitions costing Inf are never pushed.
func Search(g *grid.Grid, start, goal grid.Coord, opts ...Option) Result {
	cfg := config{weight: DefaultWeight, wantPath: true}
	for _, o := range opts {
		o(&cfg)
	}
	h := cfg.heuristic
	if h == nil {
		h = func(c grid.Coord) float64 { return g.Heuristic(c, goal) }
	}
	f := func(gs float64, c grid.Coord) float64 {
		return (1-cfg.weight)*gs + cfg.weight*h(c)
	}

	if start == goal {
		res := Result{Cost: 0}
		if cfg.wantPath {
			res.Path = []grid.Coord{start}
		}
		if cfg.workings {
			res.Closed = []grid.Coord{start}
		}
		searchTotal.WithLabelValues(outcomeFound).Inc()
		searchExpanded.Observe(0)
		return res
	}

	var q Queue[grid.Coord]
	best := map[grid.Coord]float64{start: 0}
	closed := make(map[grid.Coord]bool)
	var closedOrder []grid.Coord
	q.Push(start, f(0, start), 0, nil)

	expanded := 0
	for q.Len() > 0 {
		cur := q.Pop()
		if closed[cur.State] {
			continue
		}
		closed[cur.State] = true
		if cfg.workings {
			closedOrder = append(closedOrder, cur.State)
		}
		if cur.State == goal {
			res := Result{Cost: cur.G, Expanded: expanded}
			if cfg.wantPath {
				res.Path = Walk(cur)
			}
			if cfg.workings {
				res.Closed = closedOrder
				res.Open = openStates(&q, closed)
			}
			searchTotal.WithLabelValues(outcomeFound).Inc()
			searchExpanded.Observe(float64(expanded))
			return res
		}
		expanded++

		for _, n := range g.Adjacents(cur.State) {
			if closed[n] {
				continue
			}
			step := g.MoveCost(cur.State, n, cfg.keys)
			if math.IsInf(step, 1) {
				continue
			}
			ng := cur.G + step
			if prev, ok := best[n]; ok && ng >= prev {
				continue
			}
			best[n] = ng
			q.Push(n, f(ng, n), ng, cur)
		}
	}

	res := NoPath()
	res.Expanded = expanded
	if cfg.workings {
		res.Closed = closedOrder
	}
	searchTotal.WithLabelValues(outcomeNoPath).Inc()
	searchExpanded.Observe(float64(expanded))
	return res
}

// openStates lists the distinct queued coordinates that were never closed.
func openStates(q *Queue[grid.Coord], closed map[grid.Coord]bool) []grid.Coord {
	seen := make(map[grid.Coord]bool)
	var out []grid.Coord
	for _, c := range q.States() {
		if closed[c] || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
