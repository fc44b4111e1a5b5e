package sim

import (
	"sort"

	"github.com/Garsondee/pathsense/internal/grid"
)

// TerrainChange repaints an inclusive rectangle.
type TerrainChange struct {
	Terrain     grid.Terrain
	TopLeft     grid.Coord
	BottomRight grid.Coord
}

// Script holds scripted changes keyed by the step count at which they fire.
// Agent entries are displacement vectors relative to the current position.
type Script struct {
	Terrain map[int]TerrainChange
	Goal    map[int]grid.Coord
	Agent   map[int]grid.Coord
}

// Empty reports whether the script has no entries.
func (s Script) Empty() bool {
	return len(s.Terrain) == 0 && len(s.Goal) == 0 && len(s.Agent) == 0
}

// Steps lists every step index that carries at least one change, ascending.
func (s Script) Steps() []int {
	seen := map[int]bool{}
	for k := range s.Terrain {
		seen[k] = true
	}
	for k := range s.Goal {
		seen[k] = true
	}
	for k := range s.Agent {
		seen[k] = true
	}
	out := make([]int, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
