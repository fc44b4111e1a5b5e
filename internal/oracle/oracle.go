// Package oracle answers memoized optimal-cost queries over a grid, including
// costs constrained to pass through (or avoid) an observed sequence of cells.
package oracle

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/search"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pathsense",
	Subsystem: "oracle",
	Name:      "lookups_total",
	Help:      "Optimal-cost lookups by cache result",
}, []string{"cache", "result"})

// Stats reports cache effectiveness since the oracle was built.
type Stats struct {
	Hits   int64
	Misses int64
	Resets int64
}

type pair struct{ from, to grid.Coord }

// Oracle memoizes optimal costs on one grid.
//
// The start-bound cache holds cost(start, goal) for a single start and is
// cleared when the start or the grid version changes. The pairwise cache holds
// arbitrary (from, to) costs and is cleared only on a grid version change.
// An Oracle is not safe for concurrent use.
type Oracle struct {
	g      *grid.Grid
	keys   []grid.Coord
	logger *slog.Logger

	start    grid.Coord
	hasStart bool
	version  uint64
	byGoal   map[grid.Coord]float64
	byPair   map[pair]float64

	stats Stats
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithKeys sets the keys held for every query.
func WithKeys(keys []grid.Coord) Option {
	return func(o *Oracle) { o.keys = append([]grid.Coord(nil), keys...) }
}

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Oracle) { o.logger = l }
}

// New builds an oracle over g.
func New(g *grid.Grid, opts ...Option) *Oracle {
	o := &Oracle{
		g:       g,
		version: g.Version(),
		byGoal:  make(map[grid.Coord]float64),
		byPair:  make(map[pair]float64),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Grid returns the grid the oracle answers for.
func (o *Oracle) Grid() *grid.Grid { return o.g }

// Keys returns the keys held for every query.
func (o *Oracle) Keys() []grid.Coord { return o.keys }

// Stats returns hit/miss/reset counts.
func (o *Oracle) Stats() Stats { return o.stats }

// Start returns the start the goal cache is bound to.
func (o *Oracle) Start() (grid.Coord, bool) { return o.start, o.hasStart }

// Invalidate drops both caches.
func (o *Oracle) Invalidate() {
	clear(o.byGoal)
	clear(o.byPair)
	o.stats.Resets++
}

// sync clears stale caches after a grid edit.
func (o *Oracle) sync() {
	if v := o.g.Version(); v != o.version {
		o.logger.Debug("grid changed, dropping cost caches", "old_version", o.version, "new_version", v)
		o.version = v
		o.Invalidate()
	}
}

// OptimalCost returns the optimal cost from start to goal, memoized per goal
// for the current start. A different start clears the goal cache.
func (o *Oracle) OptimalCost(start, goal grid.Coord) float64 {
	o.sync()
	if !o.hasStart || start != o.start {
		if o.hasStart {
			o.logger.Debug("start changed, dropping goal cache", "old", o.start.String(), "new", start.String())
		}
		clear(o.byGoal)
		o.start, o.hasStart = start, true
		o.stats.Resets++
	}
	if c, ok := o.byGoal[goal]; ok {
		o.hit("goal")
		return c
	}
	o.miss("goal")
	c := o.cost(start, goal)
	o.byGoal[goal] = c
	return c
}

// PairCost returns the optimal cost from one cell to another, memoized until
// the grid changes. It does not disturb the start-bound cache.
func (o *Oracle) PairCost(from, to grid.Coord) float64 {
	o.sync()
	k := pair{from, to}
	if c, ok := o.byPair[k]; ok {
		o.hit("pair")
		return c
	}
	o.miss("pair")
	c := o.cost(from, to)
	o.byPair[k] = c
	return c
}

// Path returns an optimal path between two cells. Paths are not cached.
func (o *Oracle) Path(from, to grid.Coord) search.Result {
	return search.Search(o.g, from, to, search.WithKeys(o.keys), o.bound(to))
}

func (o *Oracle) cost(from, to grid.Coord) float64 {
	return search.Search(o.g, from, to, search.WithKeys(o.keys), search.WithoutPath(), o.bound(to)).Cost
}

// bound steers every oracle search with the grid's admissible estimate, so
// answers stay optimal whatever heuristic the grid is configured with.
func (o *Oracle) bound(goal grid.Coord) search.Option {
	return search.WithHeuristic(func(c grid.Coord) float64 { return o.g.LowerBound(c, goal) })
}

func (o *Oracle) hit(cache string) {
	o.stats.Hits++
	lookups.WithLabelValues(cache, "hit").Inc()
}

func (o *Oracle) miss(cache string) {
	o.stats.Misses++
	lookups.WithLabelValues(cache, "miss").Inc()
}
