package grid

import (
	"fmt"
	"math"
	"strings"
)

// Terrain is the single-character symbol stored in a map cell.
type Terrain byte

const (
	TerrainGround      Terrain = 'G' // Open ground
	TerrainGround1     Terrain = '.' // Open ground, alternate symbol
	TerrainWater       Terrain = 'W' // Only enterable from water on uniform maps
	TerrainSwamp       Terrain = 'S' // Passable, often costed above ground
	TerrainTree        Terrain = 'T' // Impassable by default
	TerrainObstacle    Terrain = '@' // Impassable; also the out-of-bounds sentinel
	TerrainOutOfBounds Terrain = '@'
	TerrainBlocked     Terrain = '0' // Impassable
)

// Inf is the cost sentinel for blocked cells and illegal moves.
var Inf = math.Inf(1)

// defaultCost returns the built-in cost for a terrain symbol, following the
// MovingAI benchmark conventions.
func defaultCost(t Terrain) float64 {
	switch t {
	case TerrainGround, TerrainGround1, TerrainSwamp:
		return 1
	case TerrainWater, TerrainTree, TerrainObstacle, TerrainBlocked:
		return Inf
	default:
		return Inf
	}
}

// DefaultCosts returns a fresh copy of the built-in terrain cost table.
func DefaultCosts() map[Terrain]float64 {
	out := make(map[Terrain]float64)
	for _, t := range []Terrain{TerrainGround, TerrainGround1, TerrainWater, TerrainSwamp, TerrainTree, TerrainObstacle, TerrainBlocked} {
		out[t] = defaultCost(t)
	}
	return out
}

// TerrainByName maps the long terrain names used in cost files to symbols.
func TerrainByName(name string) (Terrain, bool) {
	switch strings.ToLower(name) {
	case "ground":
		return TerrainGround, true
	case "ground1":
		return TerrainGround1, true
	case "water":
		return TerrainWater, true
	case "swamp":
		return TerrainSwamp, true
	case "tree":
		return TerrainTree, true
	default:
		return 0, false
	}
}

// String returns the symbol as a one-character string.
func (t Terrain) String() string {
	return string(rune(t))
}

// CostModel selects how straight and diagonal move costs are derived.
type CostModel int

const (
	CostMixed     CostModel = iota // straight 1×, diagonal √2×
	CostMixedOpt1                  // straight 1×, diagonal 1.5×
	CostMixedOpt2                  // straight 2×, diagonal 3×
	CostMixedReal                  // pairwise (src, dst, diagonal) lookup
)

// multipliers returns the straight and diagonal multipliers. CostMixedReal
// reports the mixed multipliers; its costs come from the pair table.
func (m CostModel) multipliers() (straight, diag float64) {
	switch m {
	case CostMixedOpt1:
		return 1, 1.5
	case CostMixedOpt2:
		return 2, 3
	default:
		return 1, math.Sqrt2
	}
}

func (m CostModel) String() string {
	switch m {
	case CostMixed:
		return "mixed"
	case CostMixedOpt1:
		return "mixed_opt1"
	case CostMixedOpt2:
		return "mixed_opt2"
	case CostMixedReal:
		return "mixed_real"
	default:
		return fmt.Sprintf("CostModel(%d)", int(m))
	}
}

// ParseCostModel accepts both the underscore and hyphen spellings.
func ParseCostModel(s string) (CostModel, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "-", "_") {
	case "", "mixed":
		return CostMixed, nil
	case "mixed_opt1":
		return CostMixedOpt1, nil
	case "mixed_opt2":
		return CostMixedOpt2, nil
	case "mixed_real":
		return CostMixedReal, nil
	default:
		return CostMixed, fmt.Errorf("unknown cost model %q", s)
	}
}
