package grid

import (
	"fmt"
	"math"
	"strings"
)

// Heuristic selects the distance estimate used by Grid.Heuristic.
type Heuristic int

const (
	HeuristicEuclid Heuristic = iota
	HeuristicManhattan
	HeuristicOctile
)

func (h Heuristic) String() string {
	switch h {
	case HeuristicEuclid:
		return "euclid"
	case HeuristicManhattan:
		return "manhattan"
	case HeuristicOctile:
		return "octile"
	default:
		return fmt.Sprintf("Heuristic(%d)", int(h))
	}
}

// ParseHeuristic maps a config name to a Heuristic. Empty means euclid.
func ParseHeuristic(s string) (Heuristic, error) {
	switch strings.ToLower(s) {
	case "", "euclid", "euclidean":
		return HeuristicEuclid, nil
	case "manhattan":
		return HeuristicManhattan, nil
	case "octile":
		return HeuristicOctile, nil
	default:
		return HeuristicEuclid, fmt.Errorf("unknown heuristic %q", s)
	}
}

// octileConst is √2−1.
const octileConst = math.Sqrt2 - 1

// Euclid is the straight-line distance between a and b.
func Euclid(a, b Coord) float64 {
	dx := float64(a.Col - b.Col)
	dy := float64(a.Row - b.Row)
	return math.Sqrt(dx*dx + dy*dy)
}

// Manhattan is |dx| + |dy|.
func Manhattan(a, b Coord) float64 {
	return float64(abs(a.Col-b.Col) + abs(a.Row-b.Row))
}

// Octile is max(dx,dy) + (√2−1)·min(dx,dy).
func Octile(a, b Coord) float64 {
	dx := float64(abs(a.Col - b.Col))
	dy := float64(abs(a.Row - b.Row))
	return math.Max(dx, dy) + octileConst*math.Min(dx, dy)
}

func (h Heuristic) distance(a, b Coord) float64 {
	switch h {
	case HeuristicManhattan:
		return Manhattan(a, b)
	case HeuristicOctile:
		return Octile(a, b)
	default:
		return Euclid(a, b)
	}
}

// LowerBound is a consistent estimate of the cheapest a→b cost under the
// active cost model, movement mode and cost table. It is the configured
// heuristic when every legal step costs at least that heuristic's step length,
// and otherwise the free-space distance with the cheapest straight and
// diagonal steps the grid allows.
func (g *Grid) LowerBound(a, b Coord) float64 {
	if g.heuristicSafe {
		return g.Heuristic(a, b)
	}
	dx, dy := abs(a.Col-b.Col), abs(a.Row-b.Row)
	lo, hi := float64(min(dx, dy)), float64(max(dx, dy))
	s := g.minStraight
	if !g.diagonal {
		return s * (lo + hi)
	}
	d := math.Min(g.minDiag, 2*s)
	if d <= s {
		return d * hi
	}
	return d*lo + s*(hi-lo)
}

// refreshBounds recomputes the cheapest steps and whether the configured
// heuristic stays below them.
func (g *Grid) refreshBounds() {
	g.minStraight, g.minDiag = g.cheapestSteps()
	diagLen := math.Sqrt2
	if g.heuristic == HeuristicManhattan {
		diagLen = 2
	}
	g.heuristicSafe = g.minStraight >= 1 && (!g.diagonal || g.minDiag >= diagLen)
}

// cheapestSteps returns the smallest finite straight and diagonal move costs
// any pair of terrains can produce. A straight step that is never finite
// counts as free.
func (g *Grid) cheapestSteps() (straight, diag float64) {
	straight, diag = Inf, Inf
	if g.model == CostMixedReal {
		for k, c := range g.pairs {
			if k.diag {
				diag = math.Min(diag, c)
			} else {
				straight = math.Min(straight, c)
			}
		}
	} else {
		base := Inf
		for _, c := range g.costs {
			base = math.Min(base, c)
		}
		straight, diag = g.straightMul*base, g.diagMul*base
	}
	if math.IsInf(straight, 1) {
		straight = 0
	}
	return straight, diag
}
