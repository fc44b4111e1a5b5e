package recognize

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/Garsondee/pathsense/internal/grid"
)

// Distribution selects how observations are drawn from a path.
type Distribution int

const (
	// DistPrefix observes a continuous prefix of the path.
	DistPrefix Distribution = iota
	// DistRandom observes a sorted random sample of interior cells.
	DistRandom
)

func (d Distribution) String() string {
	switch d {
	case DistPrefix:
		return "P"
	case DistRandom:
		return "R"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// NormalizeObservations drops the start cell and repeated cells, keeping the
// first occurrence of each in order.
func NormalizeObservations(start grid.Coord, obs []grid.Coord) []grid.Coord {
	seen := map[grid.Coord]bool{start: true}
	out := make([]grid.Coord, 0, len(obs))
	for _, c := range obs {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// PrefixObservations returns the first percent% of path.
func PrefixObservations(path []grid.Coord, percent int) []grid.Coord {
	n := len(path) * percent / 100
	n = max(0, min(n, len(path)))
	return slices.Clone(path[:n])
}

// RandomObservations returns percent% of path cells sampled from the interior
// index range [1, len−1), in path order.
func RandomObservations(path []grid.Coord, percent int, rng *rand.Rand) []grid.Coord {
	n := len(path) * percent / 100
	pool := len(path) - 2
	if pool <= 0 || n <= 0 {
		return nil
	}
	n = min(n, pool)
	idx := rng.Perm(pool)[:n]
	slices.Sort(idx)
	out := make([]grid.Coord, n)
	for i, k := range idx {
		out[i] = path[k+1]
	}
	return out
}

// Observations extracts observations using dist.
func Observations(path []grid.Coord, percent int, dist Distribution, rng *rand.Rand) []grid.Coord {
	if dist == DistRandom {
		return RandomObservations(path, percent, rng)
	}
	return PrefixObservations(path, percent)
}
