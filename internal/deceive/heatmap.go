package deceive

import (
	"math"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
)

// HeatDecimals is the rounding applied to heatmap cost differences.
const HeatDecimals = 3

// Heatmap classifies cells as truthful (the real goal looks strictly more
// likely from there than every decoy) or deceptive. Results are memoized for
// the lifetime of the heatmap.
type Heatmap struct {
	oracle *oracle.Oracle
	goals  []Goal // goals[0] is the real goal
	memo   map[grid.Coord]bool
}

// NewHeatmap builds an empty heatmap over goals (real goal first).
func NewHeatmap(o *oracle.Oracle, goals []Goal) *Heatmap {
	return &Heatmap{
		oracle: o,
		goals:  goals,
		memo:   make(map[grid.Coord]bool),
	}
}

// CostDif is the extra cost of reaching goal via n instead of optimally:
// cost(n, goal) − optc(goal), rounded to HeatDecimals.
func (h *Heatmap) CostDif(goal Goal, n grid.Coord) float64 {
	d := h.oracle.PairCost(n, goal.Coord) - goal.OptC
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return d
	}
	p := math.Pow10(HeatDecimals)
	return math.Round(d*p) / p
}

// IsTruthful reports whether the real goal's cost difference at n is strictly
// lower than every decoy's. Decoy cells are never truthful.
func (h *Heatmap) IsTruthful(n grid.Coord) bool {
	if v, ok := h.memo[n]; ok {
		return v
	}
	v := h.truthful(n)
	h.memo[n] = v
	return v
}

func (h *Heatmap) truthful(n grid.Coord) bool {
	if len(h.goals) == 0 {
		return false
	}
	realDif := h.CostDif(h.goals[0], n)
	for _, g := range h.goals[1:] {
		if g.Coord == n {
			return false
		}
		if h.CostDif(g, n) <= realDif {
			return false
		}
	}
	return true
}

// Build classifies every passable cell and returns the number of truthful
// cells found.
func (h *Heatmap) Build() int {
	truthful := 0
	for _, c := range h.oracle.Grid().Passable() {
		if h.IsTruthful(c) {
			truthful++
		}
	}
	return truthful
}

// Cells returns a copy of every classification made so far.
func (h *Heatmap) Cells() map[grid.Coord]bool {
	out := make(map[grid.Coord]bool, len(h.memo))
	for c, v := range h.memo {
		out[c] = v
	}
	return out
}
