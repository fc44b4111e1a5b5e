package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInvalidGrid is returned when a grid cannot be built from its inputs.
var ErrInvalidGrid = errors.New("invalid grid")

type pairKey struct {
	src, dst Terrain
	diag     bool
}

// Grid is the terrain, cost and adjacency oracle for a fixed-size map.
//
// A Grid is read-mostly. Mutations (SetCell, SetBlock and the Set* selectors)
// bump Version so that caches keyed on the grid can detect staleness. Callers
// must not mutate a grid while a search over it is running.
type Grid struct {
	width  int
	height int
	cells  []Terrain // row-major: row*width + col

	costs     map[Terrain]float64
	pairs     map[pairKey]float64
	overrides map[pairKey]float64
	uniform   bool

	keyDoors map[Coord][]Coord
	doors    map[Coord]struct{}

	model         CostModel
	straightMul   float64
	diagMul       float64
	diagonal      bool
	heuristic     Heuristic
	strictCorners bool

	// Cheapest possible straight and diagonal steps, for LowerBound.
	minStraight   float64
	minDiag       float64
	heuristicSafe bool

	version uint64
}

// Option configures a Grid at construction.
type Option func(*Grid)

// WithCosts overrides entries of the terrain cost table. Use Inf for impassable.
func WithCosts(costs map[Terrain]float64) Option {
	return func(g *Grid) {
		for t, c := range costs {
			g.costs[t] = c
		}
	}
}

// WithKeys installs the key → doors table.
func WithKeys(keyDoors map[Coord][]Coord) Option {
	return func(g *Grid) {
		for k, doors := range keyDoors {
			g.keyDoors[k] = append([]Coord(nil), doors...)
		}
	}
}

// WithCostModel selects the active cost model.
func WithCostModel(m CostModel) Option {
	return func(g *Grid) { g.model = m }
}

// WithDiagonal enables (8-way) or disables (4-way) diagonal moves.
func WithDiagonal(on bool) Option {
	return func(g *Grid) { g.diagonal = on }
}

// WithHeuristic selects the heuristic returned by Grid.Heuristic.
func WithHeuristic(h Heuristic) Option {
	return func(g *Grid) { g.heuristic = h }
}

// WithStrictCorners blocks a diagonal move when either flanking cell is
// impassable, instead of only when both are.
func WithStrictCorners(on bool) Option {
	return func(g *Grid) { g.strictCorners = on }
}

// WithPairCost sets an explicit mixed-real move cost for entering dst from src.
// Pair costs may be asymmetric.
func WithPairCost(src, dst Terrain, diag bool, cost float64) Option {
	return func(g *Grid) { g.overrides[pairKey{src, dst, diag}] = cost }
}

// New builds a grid from rows of terrain symbols; rows[r][c] is the cell at
// column c, row r. Every row must have the same width and every symbol must
// have an entry in the cost table.
func New(rows []string, opts ...Option) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty map", ErrInvalidGrid)
	}
	width := len(rows[0])
	g := newEmpty(width, len(rows))
	for r, line := range rows {
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrInvalidGrid, r, len(line), width)
		}
		for c := 0; c < width; c++ {
			g.cells[r*width+c] = Terrain(line[c])
		}
	}
	return g.finish(opts)
}

// NewFilled builds a width×height grid with every cell set to fill.
func NewFilled(width, height int, fill Terrain, opts ...Option) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGrid, width, height)
	}
	g := newEmpty(width, height)
	for i := range g.cells {
		g.cells[i] = fill
	}
	return g.finish(opts)
}

func newEmpty(width, height int) *Grid {
	return &Grid{
		width:     width,
		height:    height,
		cells:     make([]Terrain, width*height),
		costs:     DefaultCosts(),
		pairs:     make(map[pairKey]float64),
		overrides: make(map[pairKey]float64),
		keyDoors:  make(map[Coord][]Coord),
		doors:     make(map[Coord]struct{}),
		diagonal:  true,
	}
}

func (g *Grid) finish(opts []Option) (*Grid, error) {
	for _, o := range opts {
		o(g)
	}
	for i, t := range g.cells {
		if _, ok := g.costs[t]; !ok {
			return nil, fmt.Errorf("%w: unknown terrain %q at %s", ErrInvalidGrid, t, g.coordOf(i))
		}
	}
	for k, doors := range g.keyDoors {
		if !g.InBounds(k) {
			return nil, fmt.Errorf("%w: key %s out of bounds", ErrInvalidGrid, k)
		}
		for _, d := range doors {
			if !g.InBounds(d) {
				return nil, fmt.Errorf("%w: door %s for key %s out of bounds", ErrInvalidGrid, d, k)
			}
			g.doors[d] = struct{}{}
		}
	}
	for _, c := range g.costs {
		if c < 0 || math.IsNaN(c) {
			return nil, fmt.Errorf("%w: negative or NaN terrain cost", ErrInvalidGrid)
		}
	}
	g.straightMul, g.diagMul = g.model.multipliers()
	g.refresh()
	return g, nil
}

// refresh rederives everything computed from the cost table.
func (g *Grid) refresh() {
	g.uniform = detectUniform(g.costs)
	g.buildPairs()
	g.refreshBounds()
}

// detectUniform reports whether the cost table has exactly one distinct
// finite cost.
func detectUniform(costs map[Terrain]float64) bool {
	distinct := map[float64]struct{}{}
	for _, c := range costs {
		if !math.IsInf(c, 1) {
			distinct[c] = struct{}{}
		}
	}
	return len(distinct) == 1
}

// buildPairs fills the mixed-real table: straight moves cost the destination
// cost, diagonal moves √2 times that, and on uniform maps water can only be
// entered from water (at ground cost).
func (g *Grid) buildPairs() {
	clear(g.pairs)
	for src := range g.costs {
		for dst, dc := range g.costs {
			straight, diag := dc, dc*math.Sqrt2
			if g.uniform && dst == TerrainWater {
				if src == TerrainWater {
					gc := g.costs[TerrainGround]
					straight, diag = gc, gc*math.Sqrt2
				} else {
					straight, diag = Inf, Inf
				}
			}
			g.pairs[pairKey{src, dst, false}] = straight
			g.pairs[pairKey{src, dst, true}] = diag
		}
	}
	for k, c := range g.overrides {
		g.pairs[k] = c
	}
}

func (g *Grid) coordOf(i int) Coord {
	return Coord{Col: i % g.width, Row: i / g.width}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Version increases on every mutation.
func (g *Grid) Version() uint64 { return g.version }

// Uniform reports whether all passable terrain shares one cost.
func (g *Grid) Uniform() bool { return g.uniform }

// Diagonal reports whether 8-way movement is enabled.
func (g *Grid) Diagonal() bool { return g.diagonal }

// CostModel returns the active cost model.
func (g *Grid) CostModel() CostModel { return g.model }

// HeuristicKind returns the active heuristic selector.
func (g *Grid) HeuristicKind() Heuristic { return g.heuristic }

// InBounds reports whether c lies inside [0,width)×[0,height).
func (g *Grid) InBounds(c Coord) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col < g.width && c.Row < g.height
}

// CellAt returns the terrain at c, or TerrainOutOfBounds outside the grid.
func (g *Grid) CellAt(c Coord) Terrain {
	if !g.InBounds(c) {
		return TerrainOutOfBounds
	}
	return g.cells[c.Row*g.width+c.Col]
}

// TerrainCost returns the cost table entry for t (Inf if unknown).
func (g *Grid) TerrainCost(t Terrain) float64 {
	c, ok := g.costs[t]
	if !ok {
		return Inf
	}
	return c
}

// IsKey reports whether c holds a key.
func (g *Grid) IsKey(c Coord) bool {
	_, ok := g.keyDoors[c]
	return ok
}

// IsDoor reports whether c is a door for some key.
func (g *Grid) IsDoor(c Coord) bool {
	_, ok := g.doors[c]
	return ok
}

// HasKeyFor reports whether any key in keys opens door.
func (g *Grid) HasKeyFor(door Coord, keys []Coord) bool {
	for _, k := range keys {
		if slices.Contains(g.keyDoors[k], door) {
			return true
		}
	}
	return false
}

// DoorsFor returns the doors opened by the key at k.
func (g *Grid) DoorsFor(k Coord) []Coord {
	return append([]Coord(nil), g.keyDoors[k]...)
}

// AllKeys returns every key coordinate, sorted.
func (g *Grid) AllKeys() []Coord {
	keys := make([]Coord, 0, len(g.keyDoors))
	for k := range g.keyDoors {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareCoord)
	return keys
}

func compareCoord(a, b Coord) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// Adjacents returns the in-bounds 8-neighbours (4-neighbours when diagonal
// moves are disabled) of c, in column-then-row order. Passability is not
// checked here; use MoveCost.
func (g *Grid) Adjacents(c Coord) []Coord {
	out := make([]Coord, 0, 8)
	for col := c.Col - 1; col <= c.Col+1; col++ {
		for row := c.Row - 1; row <= c.Row+1; row++ {
			n := Coord{Col: col, Row: row}
			if n == c || !g.InBounds(n) {
				continue
			}
			if !g.diagonal && col != c.Col && row != c.Row {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

// IsAdjacent reports whether b is a legal neighbour of a under the current
// diagonal mode.
func (g *Grid) IsAdjacent(a, b Coord) bool {
	dc, dr := abs(a.Col-b.Col), abs(a.Row-b.Row)
	if g.diagonal {
		return dc <= 1 && dr <= 1 && (dc+dr) > 0
	}
	return dc+dr == 1
}

// Heuristic estimates the distance from a to b using the active selector.
func (g *Grid) Heuristic(a, b Coord) float64 {
	return g.heuristic.distance(a, b)
}
