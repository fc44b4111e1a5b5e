package grid

import (
	"maps"
	"math"
)

// CellCost returns the raw cost of standing on c: the terrain table entry,
// or Inf for a door none of keys opens, or for an out-of-bounds cell.
func (g *Grid) CellCost(c Coord, keys []Coord) float64 {
	if !g.InBounds(c) {
		return Inf
	}
	if g.IsDoor(c) && !g.HasKeyFor(c, keys) {
		return Inf
	}
	return g.TerrainCost(g.CellAt(c))
}

// IsPassable reports whether c has a finite raw cost with the given keys.
func (g *Grid) IsPassable(c Coord, keys []Coord) bool {
	return !math.IsInf(g.CellCost(c, keys), 1)
}

// MoveCost returns the cost of stepping from an adjacent cell into to under
// the active cost model. Illegal moves (non-adjacent, diagonal in 4-way mode,
// corner cutting, locked door, impassable terrain) cost Inf.
func (g *Grid) MoveCost(from, to Coord, keys []Coord) float64 {
	if !g.IsAdjacent(from, to) {
		return Inf
	}
	raw := g.CellCost(to, keys)
	if math.IsInf(raw, 1) && !g.waterToWater(from, to) {
		return Inf
	}
	diag := IsDiagonal(from, to)
	if diag && g.cutsCorner(from, to, keys) {
		return Inf
	}
	if g.model == CostMixedReal {
		c, ok := g.pairs[pairKey{g.CellAt(from), g.CellAt(to), diag}]
		if !ok {
			return Inf
		}
		return c
	}
	mul := g.straightMul
	if diag {
		mul = g.diagMul
	}
	if g.waterToWater(from, to) {
		return mul * g.TerrainCost(TerrainGround)
	}
	if g.uniform && g.CellAt(to) == TerrainWater {
		return Inf
	}
	return mul * raw
}

// waterToWater reports whether the move stays inside water on a uniform map,
// which is charged at ground cost.
func (g *Grid) waterToWater(from, to Coord) bool {
	if !g.uniform || g.IsDoor(to) {
		return false
	}
	return g.CellAt(from) == TerrainWater && g.CellAt(to) == TerrainWater
}

// cutsCorner reports whether a diagonal move squeezes between impassable
// flanking cells. By default both flanks must be blocked; with strict corners
// one is enough.
func (g *Grid) cutsCorner(from, to Coord, keys []Coord) bool {
	a := !g.IsPassable(Coord{Col: to.Col, Row: from.Row}, keys)
	b := !g.IsPassable(Coord{Col: from.Col, Row: to.Row}, keys)
	if g.strictCorners {
		return a || b
	}
	return a && b
}

// PathCost sums MoveCost along path. It returns Inf if any step is illegal
// and 0 for paths shorter than two cells.
func (g *Grid) PathCost(path []Coord, keys []Coord) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += g.MoveCost(path[i-1], path[i], keys)
		if math.IsInf(total, 1) {
			return Inf
		}
	}
	return total
}

// SetCell changes the terrain at c. Out-of-bounds coordinates are ignored.
func (g *Grid) SetCell(c Coord, t Terrain) {
	if !g.InBounds(c) {
		return
	}
	g.cells[c.Row*g.width+c.Col] = t
	g.ensureCost(t)
	g.version++
}

// SetBlock sets every in-bounds cell of the inclusive rectangle to t and bumps
// the version once.
func (g *Grid) SetBlock(topLeft, bottomRight Coord, t Terrain) {
	g.ensureCost(t)
	for _, c := range Block(topLeft, bottomRight) {
		if g.InBounds(c) {
			g.cells[c.Row*g.width+c.Col] = t
		}
	}
	g.version++
}

// ensureCost gives a terrain missing from the cost table its default cost
// and rederives the pair table, the uniform flag and the step bounds.
func (g *Grid) ensureCost(t Terrain) {
	if _, ok := g.costs[t]; ok {
		return
	}
	g.costs[t] = defaultCost(t)
	g.refresh()
}

// SetCostModel switches the active cost model.
func (g *Grid) SetCostModel(m CostModel) {
	g.model = m
	g.straightMul, g.diagMul = m.multipliers()
	g.refreshBounds()
	g.version++
}

// SetDiagonal switches between 8-way and 4-way movement.
func (g *Grid) SetDiagonal(on bool) {
	g.diagonal = on
	g.refreshBounds()
	g.version++
}

// SetHeuristic switches the heuristic selector.
func (g *Grid) SetHeuristic(h Heuristic) {
	g.heuristic = h
	g.refreshBounds()
	g.version++
}

// NearestPassable returns the passable cell closest to c in breadth-first
// (8-neighbour) order, or false if the grid has none. c itself is returned
// when it is already passable.
func (g *Grid) NearestPassable(c Coord, keys []Coord) (Coord, bool) {
	if !g.InBounds(c) {
		c = Coord{Col: clamp(c.Col, 0, g.width-1), Row: clamp(c.Row, 0, g.height-1)}
	}
	seen := map[Coord]bool{c: true}
	queue := []Coord{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.IsPassable(cur, keys) {
			return cur, true
		}
		for col := cur.Col - 1; col <= cur.Col+1; col++ {
			for row := cur.Row - 1; row <= cur.Row+1; row++ {
				n := Coord{Col: col, Row: row}
				if seen[n] || !g.InBounds(n) {
					continue
				}
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return Coord{}, false
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Clone returns a deep copy that can be edited independently. The copy keeps
// the version counter.
func (g *Grid) Clone() *Grid {
	out := *g
	out.cells = append([]Terrain(nil), g.cells...)
	out.costs = maps.Clone(g.costs)
	out.pairs = maps.Clone(g.pairs)
	out.overrides = maps.Clone(g.overrides)
	out.doors = maps.Clone(g.doors)
	out.keyDoors = make(map[Coord][]Coord, len(g.keyDoors))
	for k, v := range g.keyDoors {
		out.keyDoors[k] = append([]Coord(nil), v...)
	}
	return &out
}

// Passable lists every passable cell, column-major, with all keys held.
func (g *Grid) Passable() []Coord {
	keys := g.AllKeys()
	var out []Coord
	for col := 0; col < g.width; col++ {
		for row := 0; row < g.height; row++ {
			c := Coord{Col: col, Row: row}
			if g.IsPassable(c, keys) {
				out = append(out, c)
			}
		}
	}
	return out
}
