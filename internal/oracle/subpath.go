package oracle

import (
	"fmt"
	"math"
	"strings"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/search"
)

// AvoidVariant selects when a path counts as having embedded the observation
// sequence and is therefore excluded from an avoiding search.
type AvoidVariant int

const (
	// AvoidFullMatch excludes paths that pass through every observation in
	// order.
	AvoidFullMatch AvoidVariant = iota
	// AvoidLastIndex excludes a path as soon as it has matched all but the
	// last observation. Kept for parity with published results.
	AvoidLastIndex
)

func (v AvoidVariant) String() string {
	switch v {
	case AvoidFullMatch:
		return "full_match"
	case AvoidLastIndex:
		return "last_index"
	default:
		return fmt.Sprintf("AvoidVariant(%d)", int(v))
	}
}

// ParseAvoidVariant accepts "full_match" and "last_index" (hyphens and the
// short forms "full" and "last" too). Empty means AvoidFullMatch.
func ParseAvoidVariant(s string) (AvoidVariant, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "-", "_") {
	case "", "full_match", "full":
		return AvoidFullMatch, nil
	case "last_index", "last":
		return AvoidLastIndex, nil
	default:
		return AvoidFullMatch, fmt.Errorf("unknown avoid variant %q", s)
	}
}

// matchState is a cell paired with the number of observations matched so far.
type matchState struct {
	c   grid.Coord
	idx int
}

// initialIndex is 1 when the first observation is the start cell itself.
func initialIndex(start grid.Coord, obs []grid.Coord) int {
	if len(obs) > 0 && obs[0] == start {
		return 1
	}
	return 0
}

// advance returns the match index after stepping onto c. Observations are
// matched greedily, in order.
func advance(idx int, c grid.Coord, obs []grid.Coord) int {
	if idx < len(obs) && obs[idx] == c {
		return idx + 1
	}
	return idx
}

// CostWithRequiredSubpath returns the cheapest start→goal cost over paths
// that pass through obs in order (other cells may be interleaved). With no
// observations this is the optimal cost.
func (o *Oracle) CostWithRequiredSubpath(start, goal grid.Coord, obs []grid.Coord) float64 {
	if len(obs) == 0 {
		return o.PairCost(start, goal)
	}
	n := len(obs)
	return o.augmented(start, goal, obs,
		func(idx int) bool { return idx == n },
		func(int) bool { return false },
	)
}

// CostAvoidingSubpath returns the cheapest start→goal cost over paths that do
// not embed obs, as defined by variant. If the start alone already embeds the
// sequence the cost is +Inf.
func (o *Oracle) CostAvoidingSubpath(start, goal grid.Coord, obs []grid.Coord, variant AvoidVariant) float64 {
	n := len(obs)
	disqualified := func(idx int) bool { return idx >= n }
	if variant == AvoidLastIndex {
		disqualified = func(idx int) bool { return idx == n-1 }
		if n == 0 {
			disqualified = func(int) bool { return false }
		}
	}
	if variant == AvoidFullMatch && disqualified(initialIndex(start, obs)) {
		return grid.Inf
	}
	if start == goal {
		return 0
	}
	return o.augmented(start, goal, obs,
		func(int) bool { return true },
		disqualified,
	)
}

// augmented runs A* over (cell, matched index) states. accept decides whether
// reaching the goal with a given index counts; reject prunes a successor
// whose new index is disqualifying.
func (o *Oracle) augmented(start, goal grid.Coord, obs []grid.Coord, accept, reject func(int) bool) float64 {
	o.sync()
	g := o.g
	var q search.Queue[matchState]
	closed := make(map[matchState]bool)
	best := make(map[matchState]float64)

	s0 := matchState{start, initialIndex(start, obs)}
	best[s0] = 0
	q.Push(s0, g.LowerBound(start, goal), 0, nil)

	for q.Len() > 0 {
		cur := q.Pop()
		if closed[cur.State] {
			continue
		}
		closed[cur.State] = true
		if cur.State.c == goal && accept(cur.State.idx) {
			return cur.G
		}
		for _, n := range g.Adjacents(cur.State.c) {
			step := g.MoveCost(cur.State.c, n, o.keys)
			if math.IsInf(step, 1) {
				continue
			}
			nidx := advance(cur.State.idx, n, obs)
			if nidx != cur.State.idx && reject(nidx) {
				continue
			}
			ns := matchState{n, nidx}
			if closed[ns] {
				continue
			}
			ng := cur.G + step
			if prev, ok := best[ns]; ok && ng >= prev {
				continue
			}
			best[ns] = ng
			q.Push(ns, ng+g.LowerBound(n, goal), ng, nil)
		}
	}
	return grid.Inf
}
